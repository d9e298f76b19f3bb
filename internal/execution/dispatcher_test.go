package execution_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/internal/execution"
	"github.com/auth-fusion/authfusion/internal/pipeline"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, in pipeline.Input) pipeline.Result {
	args := m.Called(ctx, in)
	return args.Get(0).(pipeline.Result)
}

// blockingRunner signals started and waits for release before returning.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (r *blockingRunner) Run(context.Context, pipeline.Input) pipeline.Result {
	r.started <- struct{}{}
	<-r.release
	return &pipeline.Failed{ID: "blocked", At: pipeline.StageReplayed}
}

func createDispatcher(t *testing.T, config execution.Config, factory execution.RunnerFactory) *execution.PooledDispatcher {
	t.Helper()

	d, err := execution.NewDispatcher(execution.Params{
		Config:  config,
		Factory: factory,
		Log:     zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.Shutdown(context.Background()) })

	return d
}

func TestDispatcher_New_DefaultFactory(t *testing.T) {
	d := createDispatcher(t, execution.Config{}, nil)

	// the default pipeline rejects the input before touching the network
	res, err := d.Send(context.Background(), pipeline.Input{})
	require.NoError(t, err)
	assert.ErrorIs(t, res.(*pipeline.Failed), pipeline.ErrEmptyRequest)
}

func TestDispatcher_Send(t *testing.T) {
	runner := &mockRunner{}
	in := pipeline.Input{Raw: []byte("GET / HTTP/1.1\r\n\r\n"), Credential: "token"}
	want := &pipeline.Failed{ID: "run", At: pipeline.StageParsed}

	runner.On("Run", mock.Anything, in).Return(want).Once()

	d := createDispatcher(t, execution.DefaultConfig(), func(context.Context) (execution.Runner, error) {
		return runner, nil
	})

	res, err := d.Send(context.Background(), in)
	require.NoError(t, err)
	assert.Same(t, want, res)
	assert.Equal(t, 0, d.InFlight())
	runner.AssertExpectations(t)
}

func TestDispatcher_Send_FactoryFails(t *testing.T) {
	d := createDispatcher(t, execution.DefaultConfig(), func(context.Context) (execution.Runner, error) {
		return nil, assert.AnError
	})

	_, err := d.Send(context.Background(), pipeline.Input{})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestDispatcher_Send_Busy(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}

	d := createDispatcher(t, execution.Config{MaxConcurrent: 1, AcquireTimeout: 20 * time.Millisecond},
		func(context.Context) (execution.Runner, error) { return runner, nil })

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := d.Send(context.Background(), pipeline.Input{})
		assert.NoError(t, err)
	}()

	<-runner.started
	assert.Equal(t, 1, d.InFlight())

	_, err := d.Send(context.Background(), pipeline.Input{})
	assert.ErrorIs(t, err, execution.ErrBusy)

	close(runner.release)
	wg.Wait()
	assert.Equal(t, 0, d.InFlight())
}

func TestDispatcher_Send_CallerCanceled(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}

	d := createDispatcher(t, execution.Config{MaxConcurrent: 1, AcquireTimeout: time.Minute},
		func(context.Context) (execution.Runner, error) { return runner, nil })

	go d.Send(context.Background(), pipeline.Input{})
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := d.Send(ctx, pipeline.Input{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, execution.ErrBusy)

	close(runner.release)
}

func TestDispatcher_Send_AfterShutdown(t *testing.T) {
	d := createDispatcher(t, execution.DefaultConfig(), nil)

	require.NoError(t, d.Shutdown(context.Background()))

	_, err := d.Send(context.Background(), pipeline.Input{})
	assert.ErrorIs(t, err, execution.ErrClosed)
}

func TestDispatcher_Send_RunsConcurrently(t *testing.T) {
	const n = 4

	runner := &blockingRunner{started: make(chan struct{}, n), release: make(chan struct{})}
	d := createDispatcher(t, execution.Config{MaxConcurrent: n},
		func(context.Context) (execution.Runner, error) { return runner, nil })

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Send(context.Background(), pipeline.Input{})
		}()
	}

	for i := 0; i < n; i++ {
		<-runner.started
	}
	assert.Equal(t, n, d.InFlight())

	close(runner.release)
	wg.Wait()
}
