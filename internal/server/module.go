package server

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves every handler in the "handlers" group on config's address.
func Module(config HttpConfig) fx.Option {
	return fx.Module("server",
		fx.Supply(config),
		fx.Provide(NewLifecycleServer),
		// force construction so the lifecycle hooks are registered
		fx.Invoke(func(s *HttpServer, log *zap.Logger) {
			log.Debug("routes registered",
				zap.Strings("routes", s.Routes()),
				zap.Bool("h2c", config.H2c),
			)
		}),
	)
}
