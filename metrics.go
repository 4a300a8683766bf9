package vigilant

import (
	"context"
	"math"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
	"github.com/Chichichkin/vigilant-go/internal/telemetry/ingest"
)

// MetricsHandler captures named numeric samples. A nil *MetricsHandler
// discards everything.
type MetricsHandler struct {
	h *handler[telemetry.MetricEvent]
}

func NewMetricsHandler(opts Options) *MetricsHandler {
	opts = opts.withDefaults()
	return &MetricsHandler{
		h: newHandler[telemetry.MetricEvent](opts, ingest.NewMetricSender(opts.ingestConfig())),
	}
}

// Emit queues one sample. NaN and infinite values cannot be encoded and are
// ignored.
func (m *MetricsHandler) Emit(name string, value float64, attrs Attributes) {
	if m == nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}

	m.h.add(telemetry.MetricEvent{
		Timestamp:  telemetry.Now(),
		Name:       name,
		Value:      value,
		Attributes: m.h.attributes(attrs, nil),
	})
}

func (m *MetricsHandler) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.h.shutdown(ctx)
}

func (m *MetricsHandler) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return m.h.processor.Stats()
}
