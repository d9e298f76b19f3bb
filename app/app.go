package app

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/config"
	"github.com/auth-fusion/authfusion/internal/execution"
	"github.com/auth-fusion/authfusion/internal/shell"
	"github.com/auth-fusion/authfusion/util/conf"
	"github.com/auth-fusion/authfusion/util/logging"
)

// New creates the shell for the long-running modes. The shared module
// provides the config and the scan dispatcher.
func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	config, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	sharedModule := fx.Module(
		"shared",
		// provide global config
		fx.Supply(config),
		// provide the pooled scan dispatcher
		fx.Provide(NewDispatcher),
	)

	return shell.New(log, sharedModule), nil
}

type DispatcherParams struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func NewDispatcher(params DispatcherParams, lc fx.Lifecycle) (execution.Dispatcher, error) {
	return execution.NewLifecycleDispatcher(execution.Params{
		Config:   params.Config.Execution,
		Pipeline: params.Config.Pipeline(),
		Log:      params.Log,
	}, lc)
}
