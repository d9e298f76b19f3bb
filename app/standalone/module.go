package standalone

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/handler"
	"github.com/auth-fusion/authfusion/internal/server"
	"github.com/auth-fusion/authfusion/util/logging"
)

func Module(config Config) fx.Option {
	return fx.Module(
		"serve",
		// rename logger for module
		logging.DecorateLogger("serve", zap.String("mode", "serve")),
		// provide scan and health routes
		handler.Module(),
		// provide server
		server.Module(config.HttpConfig),
	)
}
