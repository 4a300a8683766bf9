package vigilant

import (
	"context"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
	"github.com/Chichichkin/vigilant-go/internal/telemetry/batch"
)

// handler is the part shared by all handles: a running batch processor and
// the immutable settings every capture needs.
type handler[T any] struct {
	name      string
	noop      bool
	processor *batch.Processor[T]
}

func newHandler[T any](opts Options, sender telemetry.Sender[T]) *handler[T] {
	if opts.Noop {
		sender = telemetry.SenderFunc[T](func(context.Context, []T) error { return nil })
	}

	h := &handler[T]{
		name:      opts.Name,
		noop:      opts.Noop,
		processor: batch.NewProcessor(context.Background(), sender, opts.batchConfig()),
	}
	h.processor.Start()
	return h
}

func (h *handler[T]) add(item T) {
	if h.noop {
		return
	}
	h.processor.Add(item)
}

func (h *handler[T]) attributes(attrs Attributes, extra Attributes) Attributes {
	merged := telemetry.MergeAttributes(attrs, extra)
	telemetry.SanitizeAttributes(merged)
	merged["service.name"] = h.name
	return merged
}

// shutdown stops the processor and waits for the final drain, or for ctx to
// end, whichever comes first. The drain keeps going in the background when
// ctx wins.
func (h *handler[T]) shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.processor.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
