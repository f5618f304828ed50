package logging

import (
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (*ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLogger(zap.New(core)), logs
}

func TestZapLogger_MessageAndFields(t *testing.T) {
	// Arrange
	logger, logs := newObserved(zapcore.DebugLevel)
	helper := log.NewHelper(logger)

	// Act
	helper.Warnw("msg", "store unavailable", "domain", "go.example.com", "stage", "lookup")

	// Assert
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "store unavailable", entry.Message)
	assert.Equal(t, "go.example.com", entry.ContextMap()["domain"])
	assert.Equal(t, "lookup", entry.ContextMap()["stage"])
}

func TestZapLogger_LevelFilter(t *testing.T) {
	// Arrange
	logger, logs := newObserved(zapcore.InfoLevel)

	// Act
	_ = logger.Log(log.LevelDebug, "msg", "hidden")
	_ = logger.Log(log.LevelError, "msg", "shown")

	// Assert
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestZapLogger_OddKeyvals(t *testing.T) {
	// Arrange
	logger, logs := newObserved(zapcore.DebugLevel)

	// Act
	err := logger.Log(log.LevelInfo, "msg")

	// Assert
	assert.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestZapLogger_WithValuers(t *testing.T) {
	// Arrange
	base, logs := newObserved(zapcore.DebugLevel)
	logger := log.With(base, "service.name", "link-runtime")

	// Act
	_ = logger.Log(log.LevelInfo, "msg", "hello")

	// Assert
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "link-runtime", logs.All()[0].ContextMap()["service.name"])
}

func TestNewZap(t *testing.T) {
	prod, err := NewZap(false)
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))

	dev, err := NewZap(true)
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
}
