package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	log, err := New("authfusion", "debug", FormatDevelopment)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = New("authfusion", "nonsense", "")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestLoggerFromContext(t *testing.T) {
	_, err := LoggerFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoLoggerInContext)
	assert.NotNil(t, LoggerFromContextOrNop(context.Background()))

	log := zap.NewExample()
	ctx := ContextWithLogger(context.Background(), log)

	got, err := LoggerFromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, log, got)
}

func TestNamedLogger(t *testing.T) {
	log := NamedLogger("scan")(zap.NewExample())
	assert.Equal(t, "scan", log.Name())

	core, logs := observer.New(zap.InfoLevel)
	NamedLogger("serve", zap.String("mode", "serve"))(zap.New(core)).Info("started")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "serve", entry.LoggerName)
	assert.Equal(t, "serve", entry.ContextMap()["mode"])
}
