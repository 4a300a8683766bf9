package vigilant

import (
	"context"
	"sync"
)

// Process-wide handles. Each slot goes through init -> active -> shutdown;
// after shutdown the slot is empty again and package level captures are
// dropped until the next Init call.
var (
	globalMu             sync.RWMutex
	globalLogger         *Logger
	globalErrorHandler   *ErrorHandler
	globalMetricsHandler *MetricsHandler
)

// InitLogger creates the process-wide logger. If one is already active it is
// returned unchanged and opts are ignored.
func InitLogger(opts LoggerOptions) *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewLogger(opts)
	}
	return globalLogger
}

// InitErrorHandler creates the process-wide error handler. If one is already
// active it is returned unchanged.
func InitErrorHandler(opts Options) *ErrorHandler {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalErrorHandler == nil {
		globalErrorHandler = NewErrorHandler(opts)
	}
	return globalErrorHandler
}

// InitMetricsHandler creates the process-wide metrics handler. If one is
// already active it is returned unchanged.
func InitMetricsHandler(opts Options) *MetricsHandler {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalMetricsHandler == nil {
		globalMetricsHandler = NewMetricsHandler(opts)
	}
	return globalMetricsHandler
}

// ShutdownLogger detaches the process-wide logger and waits for it to drain.
// It is a no-op when no logger was initialised.
func ShutdownLogger(ctx context.Context) error {
	globalMu.Lock()
	l := globalLogger
	globalLogger = nil
	globalMu.Unlock()
	return l.Shutdown(ctx)
}

func ShutdownErrorHandler(ctx context.Context) error {
	globalMu.Lock()
	e := globalErrorHandler
	globalErrorHandler = nil
	globalMu.Unlock()
	return e.Shutdown(ctx)
}

func ShutdownMetricsHandler(ctx context.Context) error {
	globalMu.Lock()
	m := globalMetricsHandler
	globalMetricsHandler = nil
	globalMu.Unlock()
	return m.Shutdown(ctx)
}

func LogDebug(message string, attrs Attributes) {
	currentLogger().log(LevelDebug, message, attrs, nil)
}

func LogInfo(message string, attrs Attributes) {
	currentLogger().log(LevelInfo, message, attrs, nil)
}

func LogWarn(message string, attrs Attributes) {
	currentLogger().log(LevelWarning, message, attrs, nil)
}

func LogError(message string, err error, attrs Attributes) {
	currentLogger().log(LevelError, message, attrs, err)
}

func EnableLogAutocapture() {
	currentLogger().EnableAutocapture()
}

func DisableLogAutocapture() {
	currentLogger().DisableAutocapture()
}

func CaptureError(err error, attrs Attributes) {
	globalMu.RLock()
	e := globalErrorHandler
	globalMu.RUnlock()
	e.capture(err, attrs, 1)
}

func EmitMetric(name string, value float64, attrs Attributes) {
	globalMu.RLock()
	m := globalMetricsHandler
	globalMu.RUnlock()
	m.Emit(name, value, attrs)
}

func currentLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}
