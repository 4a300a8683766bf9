package vigilant

import (
	"context"
	"log/slog"
	"time"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
)

// Handler returns a slog.Handler that captures records through the logger.
// Records below minLevel are discarded; pass nil to capture every level.
// Group names become dotted attribute key prefixes.
func (l *Logger) Handler(minLevel slog.Leveler) slog.Handler {
	if minLevel == nil {
		minLevel = slog.LevelDebug
	}
	return &slogHandler{logger: l, minLevel: minLevel}
}

type slogHandler struct {
	logger   *Logger
	minLevel slog.Leveler
	attrs    Attributes
	prefix   string
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger != nil && level >= h.minLevel.Level()
}

func (h *slogHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := telemetry.MergeAttributes(h.attrs, nil)
	record.Attrs(func(a slog.Attr) bool {
		flattenAttr(attrs, h.prefix, a)
		return true
	})

	h.logger.log(levelFromSlog(record.Level), record.Message, attrs, nil)
	return nil
}

func (h *slogHandler) WithAttrs(as []slog.Attr) slog.Handler {
	if len(as) == 0 {
		return h
	}
	clone := *h
	clone.attrs = telemetry.MergeAttributes(h.attrs, nil)
	for _, a := range as {
		flattenAttr(clone.attrs, h.prefix, a)
	}
	return &clone
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func levelFromSlog(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return LevelDebug
	case level < slog.LevelWarn:
		return LevelInfo
	case level < slog.LevelError:
		return LevelWarning
	default:
		return LevelError
	}
}

func flattenAttr(dst Attributes, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, member := range a.Value.Group() {
			flattenAttr(dst, groupPrefix, member)
		}
		return
	}

	dst[prefix+a.Key] = slogValue(a.Value)
}

func slogValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	default:
		return stringify(v.Any())
	}
}
