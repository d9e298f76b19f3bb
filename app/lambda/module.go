package lambda

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/handler"
	"github.com/auth-fusion/authfusion/util/logging"
)

func Module(config Config) fx.Option {
	return fx.Module(
		"lambda",
		// provide lambda config
		fx.Supply(config),
		// rename logger for module
		logging.DecorateLogger("lambda", zap.String("mode", "lambda")),
		// provide handlers
		handler.Module(),
		// provide server
		fx.Provide(NewLifecycleHandler),
		// invoke server
		fx.Invoke(func(*LambdaHandler) {}),
	)
}
