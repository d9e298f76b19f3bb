package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/puddle/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/internal/pipeline"
)

const (
	DefaultMaxConcurrent  = 8
	DefaultAcquireTimeout = 5 * time.Second
)

var (
	// ErrBusy is returned when no pipeline becomes available in time.
	ErrBusy = errors.New("all pipelines are busy")

	// ErrClosed is returned after the dispatcher was shut down.
	ErrClosed = errors.New("dispatcher is closed")
)

// Runner runs a single scan. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) pipeline.Result
}

// RunnerFactory creates a new runner for the pool.
type RunnerFactory func(context.Context) (Runner, error)

type Dispatcher interface {
	// Send runs in on a pooled runner and returns its result.
	Send(ctx context.Context, in pipeline.Input) (pipeline.Result, error)

	// InFlight returns the number of scans currently running.
	InFlight() int

	// Shutdown closes the pool, waiting for running scans to return.
	Shutdown(context.Context) error
}

type Config struct {
	// MaxConcurrent is the maximum number of scans running at once
	MaxConcurrent int `conf:"max_concurrent"`

	// AcquireTimeout bounds how long Send waits for a free runner
	AcquireTimeout time.Duration `conf:"acquire_timeout"`
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrent:  DefaultMaxConcurrent,
		AcquireTimeout: DefaultAcquireTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = DefaultAcquireTimeout
	}
	return c
}

type Params struct {
	// Config is the config for the dispatcher
	Config Config

	// Pipeline is the config handed to every pipeline the default factory creates
	Pipeline pipeline.Config

	// Factory overrides how runners are created
	Factory RunnerFactory

	// Log is the logger to use for the dispatcher
	Log *zap.Logger
}

type PooledDispatcher struct {
	pool   *puddle.Pool[Runner]
	config Config
	log    *zap.Logger
}

var _ Dispatcher = (*PooledDispatcher)(nil)

func NewDispatcher(params Params) (*PooledDispatcher, error) {
	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	config := params.Config.withDefaults()

	factory := params.Factory
	if factory == nil {
		factory = func(context.Context) (Runner, error) {
			return pipeline.New(pipeline.Params{
				Config: params.Pipeline,
				Log:    log,
			}), nil
		}
	}

	pool, err := createPool(factory, config, log.Named("dispatcher_pool"))
	if err != nil {
		return nil, err
	}

	return &PooledDispatcher{
		pool:   pool,
		config: config,
		log:    log.Named("dispatcher"),
	}, nil
}

// NewLifecycleDispatcher creates a dispatcher and closes it when the fx
// application stops.
func NewLifecycleDispatcher(params Params, lc fx.Lifecycle) (Dispatcher, error) {
	d, err := NewDispatcher(params)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: d.Shutdown,
	})

	return d, nil
}

func (d *PooledDispatcher) Send(ctx context.Context, in pipeline.Input) (pipeline.Result, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, d.config.AcquireTimeout)
	resource, err := d.pool.Acquire(acquireCtx)
	cancel()

	if err != nil {
		switch {
		case errors.Is(err, puddle.ErrClosedPool):
			return nil, ErrClosed
		case ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded):
			d.log.Debug("no pipeline available", zap.Duration("waited", d.config.AcquireTimeout))
			return nil, ErrBusy
		default:
			return nil, fmt.Errorf("error acquiring pipeline: %w", err)
		}
	}

	defer resource.Release()

	return resource.Value().Run(ctx, in), nil
}

func (d *PooledDispatcher) InFlight() int {
	return int(d.pool.Stat().AcquiredResources())
}

// Shutdown closes the pool. It blocks until all acquired runners are
// released.
func (d *PooledDispatcher) Shutdown(context.Context) error {
	d.log.Debug("shutting down dispatcher")
	d.pool.Close()
	return nil
}

// MARK: - Pool

func createPool(factory RunnerFactory, config Config, log *zap.Logger) (*puddle.Pool[Runner], error) {
	constructor := func(ctx context.Context) (Runner, error) {
		r, err := factory(ctx)
		if err != nil {
			log.Error("error creating pipeline", zap.Error(err))
			return nil, err
		}
		return r, nil
	}

	return puddle.NewPool(&puddle.Config[Runner]{
		Constructor: constructor,
		Destructor:  func(Runner) {},
		MaxSize:     int32(config.MaxConcurrent),
	})
}
