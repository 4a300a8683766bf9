package promstats

import (
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	vigilant "github.com/Chichichkin/vigilant-go"
)

const namespace = "vigilant"

// Source is anything reporting delivery counters, i.e. the vigilant handles.
type Source interface {
	Stats() vigilant.Stats
}

// Collector exposes the delivery counters of a set of handles, labelled by
// telemetry kind, on a dedicated registry.
type Collector struct {
	registry *prometheus.Registry
	sources  map[string]Source
	kinds    []string

	eventsQueued  *prometheus.Desc
	eventsSent    *prometheus.Desc
	eventsDropped *prometheus.Desc
	batchesSent   *prometheus.Desc
	batchesFailed *prometheus.Desc
	queueLength   *prometheus.Desc
}

func NewCollector(sources map[string]Source) (*Collector, error) {
	kinds := make([]string, 0, len(sources))
	for kind := range sources {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	labels := []string{"kind"}
	c := &Collector{
		registry:      prometheus.NewRegistry(),
		sources:       sources,
		kinds:         kinds,
		eventsQueued:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "events_queued_total"), "Events accepted into the send queue.", labels, nil),
		eventsSent:    prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "events_sent_total"), "Events delivered in successful batches.", labels, nil),
		eventsDropped: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "events_dropped_total"), "Events captured after shutdown and discarded.", labels, nil),
		batchesSent:   prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "batches_sent_total"), "Batches accepted by the ingestion endpoint.", labels, nil),
		batchesFailed: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "batches_failed_total"), "Batches dropped after a failed send.", labels, nil),
		queueLength:   prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "queue_length"), "Events waiting to be sent.", labels, nil),
	}

	if err := c.registry.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.eventsQueued
	ch <- c.eventsSent
	ch <- c.eventsDropped
	ch <- c.batchesSent
	ch <- c.batchesFailed
	ch <- c.queueLength
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, kind := range c.kinds {
		stats := c.sources[kind].Stats()
		ch <- prometheus.MustNewConstMetric(c.eventsQueued, prometheus.CounterValue, float64(stats.EventsQueued), kind)
		ch <- prometheus.MustNewConstMetric(c.eventsSent, prometheus.CounterValue, float64(stats.EventsSent), kind)
		ch <- prometheus.MustNewConstMetric(c.eventsDropped, prometheus.CounterValue, float64(stats.EventsDropped), kind)
		ch <- prometheus.MustNewConstMetric(c.batchesSent, prometheus.CounterValue, float64(stats.BatchesSent), kind)
		ch <- prometheus.MustNewConstMetric(c.batchesFailed, prometheus.CounterValue, float64(stats.BatchesFailed), kind)
		ch <- prometheus.MustNewConstMetric(c.queueLength, prometheus.GaugeValue, float64(stats.QueueLength), kind)
	}
}

// Registry returns the registry the collector is registered with, so callers
// can add their own metrics next to it.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
