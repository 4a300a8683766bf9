package vigilant

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Chichichkin/vigilant-go/internal/telemetry/ingest"
)

// ingestServer is a fake ingestion endpoint recording every payload.
type ingestServer struct {
	*httptest.Server
	mu       sync.Mutex
	payloads []ingest.Payload
	status   int
}

func newIngestServer(t *testing.T) *ingestServer {
	s := &ingestServer{status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload ingest.Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}

		s.mu.Lock()
		s.payloads = append(s.payloads, payload)
		status := s.status
		s.mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *ingestServer) setStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *ingestServer) Payloads() []ingest.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ingest.Payload(nil), s.payloads...)
}

func (s *ingestServer) options() Options {
	return Options{
		Name:          "test-service",
		Token:         "tk_test",
		Endpoint:      strings.TrimPrefix(s.URL, "http://"),
		Insecure:      true,
		BatchInterval: 5 * time.Millisecond,
	}
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes passthrough
// and test reads can produce.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
