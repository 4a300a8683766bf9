package telemetry

import (
	"context"
	"time"
)

type Level string

const (
	LevelDebug   Level = "DEBUG"
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

type Kind string

const (
	KindLogs    Kind = "logs"
	KindErrors  Kind = "errors"
	KindMetrics Kind = "metrics"
)

// Attributes are free-form key/value pairs attached to every event.
type Attributes map[string]any

type LogEvent struct {
	Timestamp  string     `json:"timestamp"`
	Body       string     `json:"body"`
	Level      Level      `json:"level"`
	Attributes Attributes `json:"attributes"`
}

type ErrorDetails struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Stacktrace string `json:"stacktrace"`
}

type ErrorLocation struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

type ErrorEvent struct {
	Timestamp  string        `json:"timestamp"`
	Details    ErrorDetails  `json:"details"`
	Location   ErrorLocation `json:"location"`
	Attributes Attributes    `json:"attributes"`
}

type MetricEvent struct {
	Timestamp  string     `json:"timestamp"`
	Name       string     `json:"name"`
	Value      float64    `json:"value"`
	Attributes Attributes `json:"attributes"`
}

// Sender ships one batch. Implementations return an error for any transport
// or non-2xx failure; the caller decides what to do with it.
type Sender[T any] interface {
	SendBatch(ctx context.Context, batch []T) error
}

// SenderFunc adapts a function into a Sender.
type SenderFunc[T any] func(ctx context.Context, batch []T) error

func (f SenderFunc[T]) SendBatch(ctx context.Context, batch []T) error {
	return f(ctx, batch)
}

type Config struct {
	BatchInterval time.Duration
	MaxBatchSize  int
	// OnError receives every swallowed send failure. Optional.
	OnError func(error)
}

const (
	DefaultBatchInterval = 100 * time.Millisecond
	DefaultMaxBatchSize  = 100
)

// WithDefaults fills zero fields with the default batching parameters.
func (c Config) WithDefaults() Config {
	if c.BatchInterval <= 0 {
		c.BatchInterval = DefaultBatchInterval
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = DefaultMaxBatchSize
	}
	return c
}
