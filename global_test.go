package vigilant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobal_CaptureBeforeInit(t *testing.T) {
	require.Nil(t, currentLogger())

	assert.NotPanics(t, func() {
		LogDebug("x", nil)
		LogInfo("x", nil)
		LogWarn("x", nil)
		LogError("x", errors.New("y"), nil)
		CaptureError(errors.New("y"), nil)
		EmitMetric("m", 1, nil)
		EnableLogAutocapture()
		DisableLogAutocapture()

		assert.NoError(t, ShutdownLogger(context.Background()))
		assert.NoError(t, ShutdownErrorHandler(context.Background()))
		assert.NoError(t, ShutdownMetricsHandler(context.Background()))
	})
}

func TestGlobal_Lifecycle(t *testing.T) {
	server := newIngestServer(t)

	logger := InitLogger(LoggerOptions{Options: server.options(), DisablePassthrough: true})
	errorHandler := InitErrorHandler(server.options())
	metricsHandler := InitMetricsHandler(server.options())

	// a second init keeps the active handle
	assert.Same(t, logger, InitLogger(LoggerOptions{}))
	assert.Same(t, errorHandler, InitErrorHandler(Options{}))
	assert.Same(t, metricsHandler, InitMetricsHandler(Options{}))

	LogInfo("hello", nil)
	LogError("failed", errors.New("cause"), nil)
	CaptureError(errors.New("boom"), nil)
	EmitMetric("count", 2, nil)

	require.NoError(t, ShutdownLogger(context.Background()))
	require.NoError(t, ShutdownErrorHandler(context.Background()))
	require.NoError(t, ShutdownMetricsHandler(context.Background()))

	assert.Len(t, sentLogs(server), 2)
	assert.Len(t, sentErrors(server), 1)
	assert.Len(t, sentMetrics(server), 1)

	events := sentErrors(server)
	assert.Contains(t, events[0].Location.Function, "TestGlobal_Lifecycle")

	// inert after shutdown
	sent := len(server.Payloads())
	LogInfo("late", nil)
	CaptureError(errors.New("late"), nil)
	EmitMetric("late", 1, nil)
	assert.Len(t, server.Payloads(), sent)

	// a new init builds a fresh handle
	next := InitMetricsHandler(server.options())
	assert.NotSame(t, metricsHandler, next)
	require.NoError(t, ShutdownMetricsHandler(context.Background()))
}
