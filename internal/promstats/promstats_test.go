package promstats

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vigilant "github.com/Chichichkin/vigilant-go"
)

type fixedSource vigilant.Stats

func (s fixedSource) Stats() vigilant.Stats { return vigilant.Stats(s) }

func TestCollector(t *testing.T) {
	collector, err := NewCollector(map[string]Source{
		"logs":    fixedSource{EventsQueued: 10, EventsSent: 8, BatchesSent: 2, QueueLength: 2},
		"metrics": fixedSource{EventsQueued: 3, BatchesFailed: 1, EventsDropped: 4},
	})
	require.NoError(t, err)

	expected := `
# HELP vigilant_batches_failed_total Batches dropped after a failed send.
# TYPE vigilant_batches_failed_total counter
vigilant_batches_failed_total{kind="logs"} 0
vigilant_batches_failed_total{kind="metrics"} 1
# HELP vigilant_events_dropped_total Events captured after shutdown and discarded.
# TYPE vigilant_events_dropped_total counter
vigilant_events_dropped_total{kind="logs"} 0
vigilant_events_dropped_total{kind="metrics"} 4
# HELP vigilant_queue_length Events waiting to be sent.
# TYPE vigilant_queue_length gauge
vigilant_queue_length{kind="logs"} 2
vigilant_queue_length{kind="metrics"} 0
`
	err = testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected),
		"vigilant_batches_failed_total", "vigilant_events_dropped_total", "vigilant_queue_length")
	assert.NoError(t, err)
}

func TestCollector_Handler(t *testing.T) {
	collector, err := NewCollector(map[string]Source{
		"errors": fixedSource{EventsSent: 5},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vigilant_events_sent_total{kind="errors"} 5`)
}
