package vigilant

import (
	"context"
	"io"
	"sync"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
	"github.com/Chichichkin/vigilant-go/internal/telemetry/ingest"
)

// Logger captures log messages and ships them in batches. A nil *Logger is
// valid and discards everything.
type Logger struct {
	h *handler[telemetry.LogEvent]

	passthrough bool
	stdout      io.Writer
	stderr      io.Writer
	outMu       sync.Mutex
}

func NewLogger(opts LoggerOptions) *Logger {
	opts = opts.withDefaults()
	return &Logger{
		h:           newHandler[telemetry.LogEvent](opts.Options, ingest.NewLogSender(opts.ingestConfig())),
		passthrough: !opts.DisablePassthrough,
		stdout:      opts.Stdout,
		stderr:      opts.Stderr,
	}
}

func (l *Logger) Debug(message string, attrs Attributes) {
	l.log(LevelDebug, message, attrs, nil)
}

func (l *Logger) Info(message string, attrs Attributes) {
	l.log(LevelInfo, message, attrs, nil)
}

func (l *Logger) Warn(message string, attrs Attributes) {
	l.log(LevelWarning, message, attrs, nil)
}

// Error logs at ERROR level. When err is not nil its message is attached as
// the "error" attribute.
func (l *Logger) Error(message string, err error, attrs Attributes) {
	l.log(LevelError, message, attrs, err)
}

// Log captures message at an arbitrary level.
func (l *Logger) Log(level Level, message string, attrs Attributes) {
	l.log(level, message, attrs, nil)
}

// Shutdown restores any redirected standard logger output, then waits until
// every queued message has been sent. It returns ctx.Err() if ctx ends
// first.
func (l *Logger) Shutdown(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.DisableAutocapture()
	return l.h.shutdown(ctx)
}

func (l *Logger) Stats() Stats {
	if l == nil {
		return Stats{}
	}
	return l.h.processor.Stats()
}

func (l *Logger) log(level Level, message string, attrs Attributes, err error) {
	if l == nil {
		return
	}

	var extra Attributes
	if err != nil {
		extra = Attributes{"error": telemetry.ErrorMessage(err)}
	}

	l.h.add(telemetry.LogEvent{
		Timestamp:  telemetry.Now(),
		Body:       message,
		Level:      level,
		Attributes: l.h.attributes(attrs, extra),
	})

	l.echo(level, message)
}

func (l *Logger) echo(level Level, message string) {
	if !l.passthrough {
		return
	}

	out := l.stdout
	if level == LevelError {
		out = l.stderr
	}

	l.outMu.Lock()
	defer l.outMu.Unlock()
	_, _ = io.WriteString(out, message+"\n")
}
