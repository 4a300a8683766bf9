package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
)

const (
	DefaultHost     = "ingress.vigilant.run"
	messagePath     = "/api/message"
	maxErrorBodyLen = 1024
)

// Payload is the body of one POST to the ingestion endpoint. Exactly one of
// the event slices is populated, matching Type.
type Payload struct {
	Token   string                  `json:"token"`
	Type    telemetry.Kind          `json:"type"`
	Logs    []telemetry.LogEvent    `json:"logs,omitempty"`
	Errors  []telemetry.ErrorEvent  `json:"errors,omitempty"`
	Metrics []telemetry.MetricEvent `json:"metrics,omitempty"`
}

// Sender posts batches of one event kind to the ingestion endpoint.
type Sender[T any] struct {
	url           string
	token         string
	httpClient    *http.Client
	createPayload func(token string, batch []T) Payload
}

type Config struct {
	Host       string
	Token      string
	Insecure   bool
	HTTPClient *http.Client
}

func (c Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{}
}

func NewLogSender(config Config) *Sender[telemetry.LogEvent] {
	return newSender(config, func(token string, batch []telemetry.LogEvent) Payload {
		return Payload{Token: token, Type: telemetry.KindLogs, Logs: batch}
	})
}

func NewErrorSender(config Config) *Sender[telemetry.ErrorEvent] {
	return newSender(config, func(token string, batch []telemetry.ErrorEvent) Payload {
		return Payload{Token: token, Type: telemetry.KindErrors, Errors: batch}
	})
}

func NewMetricSender(config Config) *Sender[telemetry.MetricEvent] {
	return newSender(config, func(token string, batch []telemetry.MetricEvent) Payload {
		return Payload{Token: token, Type: telemetry.KindMetrics, Metrics: batch}
	})
}

func newSender[T any](config Config, createPayload func(string, []T) Payload) *Sender[T] {
	return &Sender[T]{
		url:           FormatEndpoint(config.Host, config.Insecure),
		token:         config.Token,
		httpClient:    config.client(),
		createPayload: createPayload,
	}
}

// URL returns the endpoint the sender posts to.
func (s *Sender[T]) URL() string {
	return s.url
}

// SendBatch performs a single POST. No retries.
func (s *Sender[T]) SendBatch(ctx context.Context, batch []T) error {
	if len(batch) == 0 {
		return nil
	}

	body, err := json.Marshal(s.createPayload(s.token, batch))
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return s.sendRequest(ctx, body)
}

func (s *Sender[T]) sendRequest(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return fmt.Errorf("ingestion endpoint returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// FormatEndpoint builds the message URL for host. An empty host selects the
// default ingestion endpoint, which is always https.
func FormatEndpoint(host string, insecure bool) string {
	switch {
	case host == "":
		return "https://" + DefaultHost + messagePath
	case insecure:
		return "http://" + host + messagePath
	default:
		return "https://" + host + messagePath
	}
}
