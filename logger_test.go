package vigilant

import (
	"context"
	"errors"
	"math"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
)

func newTestLogger(t *testing.T, server *ingestServer) (*Logger, *syncBuffer, *syncBuffer) {
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	logger := NewLogger(LoggerOptions{
		Options: server.options(),
		Stdout:  stdout,
		Stderr:  stderr,
	})
	t.Cleanup(func() { _ = logger.Shutdown(context.Background()) })
	return logger, stdout, stderr
}

func sentLogs(server *ingestServer) []telemetry.LogEvent {
	var logs []telemetry.LogEvent
	for _, payload := range server.Payloads() {
		logs = append(logs, payload.Logs...)
	}
	return logs
}

func TestLogger_Levels(t *testing.T) {
	server := newIngestServer(t)
	logger, stdout, stderr := newTestLogger(t, server)

	logger.Debug("debug message", nil)
	logger.Info("info message", Attributes{"user": "alice"})
	logger.Warn("warn message", nil)
	logger.Error("error message", errors.New("disk full"), nil)
	logger.Log(LevelInfo, "raw message", nil)

	require.NoError(t, logger.Shutdown(context.Background()))

	logs := sentLogs(server)
	require.Len(t, logs, 5)

	assert.Equal(t, LevelDebug, logs[0].Level)
	assert.Equal(t, "debug message", logs[0].Body)

	assert.Equal(t, LevelInfo, logs[1].Level)
	assert.Equal(t, "alice", logs[1].Attributes["user"])
	assert.Equal(t, "test-service", logs[1].Attributes["service.name"])

	assert.Equal(t, LevelWarning, logs[2].Level)

	assert.Equal(t, LevelError, logs[3].Level)
	assert.Equal(t, "disk full", logs[3].Attributes["error"])

	assert.Equal(t, "raw message", logs[4].Body)

	for _, payload := range server.Payloads() {
		assert.Equal(t, "tk_test", payload.Token)
		assert.Equal(t, telemetry.KindLogs, payload.Type)
	}

	assert.Equal(t, "debug message\ninfo message\nwarn message\nraw message\n", stdout.String())
	assert.Equal(t, "error message\n", stderr.String())
}

func TestLogger_ErrorWithoutErr(t *testing.T) {
	server := newIngestServer(t)
	logger, _, _ := newTestLogger(t, server)

	logger.Error("plain", nil, nil)
	require.NoError(t, logger.Shutdown(context.Background()))

	logs := sentLogs(server)
	require.Len(t, logs, 1)
	assert.NotContains(t, logs[0].Attributes, "error")
}

func TestLogger_DisablePassthrough(t *testing.T) {
	server := newIngestServer(t)
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	logger := NewLogger(LoggerOptions{
		Options:            server.options(),
		DisablePassthrough: true,
		Stdout:             stdout,
		Stderr:             stderr,
	})

	logger.Info("quiet", nil)
	logger.Error("quiet", nil, nil)
	require.NoError(t, logger.Shutdown(context.Background()))

	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
	assert.Len(t, sentLogs(server), 2)
}

func TestLogger_AttributesAreCopied(t *testing.T) {
	server := newIngestServer(t)
	logger, _, _ := newTestLogger(t, server)

	attrs := Attributes{"k": "v"}
	logger.Info("m", attrs)
	attrs["k"] = "changed"

	require.NoError(t, logger.Shutdown(context.Background()))

	logs := sentLogs(server)
	require.Len(t, logs, 1)
	assert.Equal(t, "v", logs[0].Attributes["k"])
	assert.Equal(t, Attributes{"k": "changed"}, attrs)
}

func TestLogger_ShutdownFlushesLargeQueue(t *testing.T) {
	server := newIngestServer(t)
	opts := server.options()
	opts.BatchInterval = time.Hour
	logger := NewLogger(LoggerOptions{Options: opts, DisablePassthrough: true})

	for i := 0; i < 250; i++ {
		logger.Info("m", Attributes{"i": i})
	}
	require.NoError(t, logger.Shutdown(context.Background()))

	var sizes []int
	for _, payload := range server.Payloads() {
		sizes = append(sizes, len(payload.Logs))
	}
	// the first tick may have caught part of the queue before shutdown
	total := 0
	for _, size := range sizes {
		assert.LessOrEqual(t, size, 100)
		total += size
	}
	assert.Equal(t, 250, total)

	logs := sentLogs(server)
	for i, log := range logs {
		assert.Equal(t, float64(i), log.Attributes["i"])
	}

	stats := logger.Stats()
	assert.Equal(t, 250, stats.EventsSent)
	assert.Equal(t, 0, stats.QueueLength)
}

func TestLogger_TransportFailureIsSilent(t *testing.T) {
	server := newIngestServer(t)
	server.setStatus(http.StatusInternalServerError)

	var mu sync.Mutex
	var failures []error
	opts := server.options()
	opts.OnSendError = func(err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, err)
	}
	logger := NewLogger(LoggerOptions{Options: opts, DisablePassthrough: true})

	logger.Info("first", nil)
	assert.Eventually(t, func() bool { return logger.Stats().BatchesFailed == 1 }, time.Second, time.Millisecond)

	logger.Info("second", nil)
	assert.NotPanics(t, func() {
		require.NoError(t, logger.Shutdown(context.Background()))
	})

	assert.Equal(t, 2, logger.Stats().BatchesFailed)
	assert.Len(t, server.Payloads(), 2)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0].Error(), "500")
}

func TestLogger_Noop(t *testing.T) {
	server := newIngestServer(t)
	opts := server.options()
	opts.Noop = true
	logger := NewLogger(LoggerOptions{Options: opts, DisablePassthrough: true})

	for i := 0; i < 500; i++ {
		logger.Info("m", nil)
	}
	require.NoError(t, logger.Shutdown(context.Background()))

	assert.Empty(t, server.Payloads())
	assert.Equal(t, 0, logger.Stats().EventsQueued)
}

func TestLogger_CaptureAfterShutdownIsDropped(t *testing.T) {
	server := newIngestServer(t)
	logger, _, _ := newTestLogger(t, server)
	require.NoError(t, logger.Shutdown(context.Background()))

	logger.Info("late", nil)

	assert.Empty(t, server.Payloads())
	assert.Equal(t, 1, logger.Stats().EventsDropped)
}

func TestLogger_ShutdownContextExpires(t *testing.T) {
	release := make(chan struct{})
	server := newIngestServer(t)
	slow := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		<-release
		return http.DefaultTransport.RoundTrip(r)
	})}

	opts := server.options()
	opts.HTTPClient = slow
	logger := NewLogger(LoggerOptions{Options: opts, DisablePassthrough: true})
	logger.Info("stuck", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, logger.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, logger.Shutdown(context.Background()))
	assert.Len(t, sentLogs(server), 1)
}

func TestLogger_NilIsSafe(t *testing.T) {
	var logger *Logger

	assert.NotPanics(t, func() {
		logger.Debug("x", nil)
		logger.Info("x", nil)
		logger.Warn("x", nil)
		logger.Error("x", errors.New("y"), nil)
		logger.Print("x")
		logger.PrintError("x")
		logger.EnableAutocapture()
		logger.DisableAutocapture()
		assert.NoError(t, logger.Shutdown(context.Background()))
		assert.Equal(t, Stats{}, logger.Stats())
	})
}

func TestLogger_Timestamp(t *testing.T) {
	server := newIngestServer(t)
	logger, _, _ := newTestLogger(t, server)

	logger.Info("m", nil)
	require.NoError(t, logger.Shutdown(context.Background()))

	logs := sentLogs(server)
	require.Len(t, logs, 1)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}000Z$`, logs[0].Timestamp)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestLogger_UnencodableAttributesDoNotDropBatch(t *testing.T) {
	server := newIngestServer(t)
	opts := server.options()
	opts.BatchInterval = time.Hour

	var mu sync.Mutex
	var failures []error
	opts.OnSendError = func(err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, err)
	}
	logger := NewLogger(LoggerOptions{Options: opts, DisablePassthrough: true})

	for i := 0; i < 99; i++ {
		logger.Info("ok", nil)
	}
	logger.Info("bad", Attributes{"ratio": math.NaN(), "done": make(chan struct{}), "kept": 1})
	require.NoError(t, logger.Shutdown(context.Background()))

	logs := sentLogs(server)
	require.Len(t, logs, 100)

	last := logs[99]
	assert.Equal(t, "bad", last.Body)
	assert.Contains(t, last.Attributes, "ratio")
	assert.Nil(t, last.Attributes["ratio"])
	assert.IsType(t, "", last.Attributes["done"])
	assert.Equal(t, float64(1), last.Attributes["kept"])

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, failures)
}

func TestLogger_TypedNilError(t *testing.T) {
	server := newIngestServer(t)
	logger, _, _ := newTestLogger(t, server)

	var pathErr *os.PathError
	var err error = pathErr

	require.NotPanics(t, func() {
		logger.Error("boom", err, nil)
		logger.PrintError("failed:", err)
	})
	require.NoError(t, logger.Shutdown(context.Background()))

	logs := sentLogs(server)
	require.Len(t, logs, 2)
	assert.Equal(t, "<nil>", logs[0].Attributes["error"])
	assert.Equal(t, "failed: <nil>", logs[1].Body)
	assert.Equal(t, "<nil>", logs[1].Attributes["error"])
}
