package conf

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound = errors.New("config not found in context")
	ErrInvalidConfig  = errors.New("invalid config in context")
)

type contextKey int

var configKey = contextKey(1)

// GetConfigFromContext returns the config stored by ContextWithConfig. It
// fails with ErrInvalidConfig when the stored value is not a C.
func GetConfigFromContext[C any](ctx context.Context) (C, error) {
	var c C

	value := ctx.Value(configKey)
	if value == nil {
		return c, ErrConfigNotFound
	}

	config, ok := value.(C)
	if !ok {
		return c, fmt.Errorf("%w: got %T, want %T", ErrInvalidConfig, value, c)
	}

	return config, nil
}

func ContextWithConfig[C any](ctx context.Context, config C) context.Context {
	return context.WithValue(ctx, configKey, config)
}
