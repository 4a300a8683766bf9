package vigilant

import (
	"context"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
	"github.com/Chichichkin/vigilant-go/internal/telemetry/ingest"
	"github.com/Chichichkin/vigilant-go/internal/telemetry/stacktrace"
)

// ErrorHandler captures errors together with their stack trace and the
// location they were captured from. A nil *ErrorHandler discards everything.
type ErrorHandler struct {
	h *handler[telemetry.ErrorEvent]
}

func NewErrorHandler(opts Options) *ErrorHandler {
	opts = opts.withDefaults()
	return &ErrorHandler{
		h: newHandler[telemetry.ErrorEvent](opts, ingest.NewErrorSender(opts.ingestConfig())),
	}
}

// Capture queues err. The stack trace is taken from err when it provides one
// (see stacktrace.Tracer), otherwise from the caller of Capture. Nil errors
// are ignored.
func (e *ErrorHandler) Capture(err error, attrs Attributes) {
	e.capture(err, attrs, 1)
}

func (e *ErrorHandler) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	return e.h.shutdown(ctx)
}

func (e *ErrorHandler) Stats() Stats {
	if e == nil {
		return Stats{}
	}
	return e.h.processor.Stats()
}

func (e *ErrorHandler) capture(err error, attrs Attributes, skip int) {
	if e == nil || err == nil || e.h.noop {
		return
	}

	stack := stacktrace.Render(err, skip+1)
	e.h.add(telemetry.ErrorEvent{
		Timestamp: telemetry.Now(),
		Details: telemetry.ErrorDetails{
			Type:       stacktrace.TypeName(err),
			Message:    telemetry.ErrorMessage(err),
			Stacktrace: stack,
		},
		Location:   stacktrace.Locate(stack),
		Attributes: e.h.attributes(attrs, nil),
	})
}
