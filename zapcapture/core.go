// Package zapcapture routes zap log entries into a vigilant.Logger.
package zapcapture

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	vigilant "github.com/Chichichkin/vigilant-go"
)

type core struct {
	zapcore.LevelEnabler
	logger *vigilant.Logger
	fields vigilant.Attributes
}

// NewCore returns a zapcore.Core that captures entries enabled by enab
// through logger. Combine it with an existing core using zapcore.NewTee to
// keep local output.
func NewCore(logger *vigilant.Logger, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{LevelEnabler: enab, logger: logger}
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	if len(fields) == 0 {
		return c
	}
	clone := *c
	clone.fields = encodeFields(c.fields, fields)
	return &clone
}

func (c *core) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *core) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	attrs := encodeFields(c.fields, fields)
	if entry.LoggerName != "" {
		attrs["logger"] = entry.LoggerName
	}
	if entry.Caller.Defined {
		attrs["caller"] = entry.Caller.TrimmedPath()
	}

	c.logger.Log(levelFromZap(entry.Level), entry.Message, attrs)
	return nil
}

func (c *core) Sync() error {
	return nil
}

func levelFromZap(level zapcore.Level) vigilant.Level {
	switch {
	case level < zapcore.InfoLevel:
		return vigilant.LevelDebug
	case level == zapcore.InfoLevel:
		return vigilant.LevelInfo
	case level == zapcore.WarnLevel:
		return vigilant.LevelWarning
	default:
		return vigilant.LevelError
	}
}

func encodeFields(base vigilant.Attributes, fields []zapcore.Field) vigilant.Attributes {
	enc := zapcore.NewMapObjectEncoder()
	for k, v := range base {
		enc.Fields[k] = v
	}
	for _, field := range fields {
		field.AddTo(enc)
	}

	attrs := make(vigilant.Attributes, len(enc.Fields))
	for k, v := range enc.Fields {
		attrs[k] = flatten(v)
	}
	return attrs
}

// flatten keeps scalars and turns anything structured into its string form
// so attributes stay flat key/value pairs.
func flatten(v any) any {
	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	default:
		return fmt.Sprint(v)
	}
}
