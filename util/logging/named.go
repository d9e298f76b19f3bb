package logging

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NamedLogger returns a decorator that names the logger and attaches fields.
func NamedLogger(name string, fields ...zap.Field) func(log *zap.Logger) *zap.Logger {
	return func(log *zap.Logger) *zap.Logger {
		return log.Named(name).With(fields...)
	}
}

// DecorateLogger renames the *zap.Logger seen by every constructor of the
// enclosing fx module.
func DecorateLogger(name string, fields ...zap.Field) fx.Option {
	return fx.Decorate(NamedLogger(name, fields...))
}
