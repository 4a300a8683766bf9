package vigilant

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
	"github.com/Chichichkin/vigilant-go/internal/telemetry/batch"
	"github.com/Chichichkin/vigilant-go/internal/telemetry/ingest"
)

const (
	DefaultName     = "sample-app"
	DefaultToken    = "tk_1234567890"
	DefaultEndpoint = ingest.DefaultHost
)

type (
	Attributes = telemetry.Attributes
	Level      = telemetry.Level
	// Stats is a snapshot of a handle's delivery counters.
	Stats = batch.StatsStamp
)

const (
	LevelDebug   = telemetry.LevelDebug
	LevelInfo    = telemetry.LevelInfo
	LevelWarning = telemetry.LevelWarning
	LevelError   = telemetry.LevelError
)

// Options configure any handle. Zero values select the defaults.
type Options struct {
	// Name is reported as the service.name attribute of every event.
	Name string
	// Token authenticates with the ingestion endpoint.
	Token string
	// Endpoint is the ingestion host, without scheme or path.
	Endpoint string
	// Insecure posts over http instead of https.
	Insecure bool
	// Noop accepts captures but never queues or sends them.
	Noop bool

	// HTTPClient overrides the client used for sends. The default client has
	// no timeout.
	HTTPClient *http.Client
	// BatchInterval is the time between flushes. Defaults to 100ms.
	BatchInterval time.Duration
	// MaxBatchSize bounds the events in one request. Defaults to 100.
	MaxBatchSize int
	// OnSendError is called from the background goroutine with every send
	// failure. Failures are otherwise silent.
	OnSendError func(error)
}

type LoggerOptions struct {
	Options

	// DisablePassthrough stops captured messages from being echoed to
	// Stdout and Stderr.
	DisablePassthrough bool
	// Stdout receives DEBUG, INFO and WARNING messages. Defaults to os.Stdout.
	Stdout io.Writer
	// Stderr receives ERROR messages. Defaults to os.Stderr.
	Stderr io.Writer
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Token == "" {
		o.Token = DefaultToken
	}
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	return o
}

func (o Options) ingestConfig() ingest.Config {
	return ingest.Config{
		Host:       o.Endpoint,
		Token:      o.Token,
		Insecure:   o.Insecure,
		HTTPClient: o.HTTPClient,
	}
}

func (o Options) batchConfig() telemetry.Config {
	return telemetry.Config{
		BatchInterval: o.BatchInterval,
		MaxBatchSize:  o.MaxBatchSize,
		OnError:       o.OnSendError,
	}
}

func (o LoggerOptions) withDefaults() LoggerOptions {
	o.Options = o.Options.withDefaults()
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}
