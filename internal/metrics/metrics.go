// Package metrics exposes engine and HTTP activity to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/linkshelf/internal/engine"
)

const namespace = "linkshelf"

var (
	collectionSizeDesc = prometheus.NewDesc(
		namespace+"_collection_links",
		"Links currently held in the canonical collection",
		nil, nil,
	)
	collectionStaleDesc = prometheus.NewDesc(
		namespace+"_collection_stale",
		"1 when the collection was loaded from the cache after a failed reload",
		nil, nil,
	)
	needsCredentialDesc = prometheus.NewDesc(
		namespace+"_needs_credential",
		"1 when no usable API key is configured",
		nil, nil,
	)
)

// SnapshotFunc returns the engine state read on each scrape.
type SnapshotFunc func() engine.Snapshot

// collectionCollector reads the engine snapshot at scrape time instead of
// keeping gauges in sync on every mutation.
type collectionCollector struct {
	snapshot SnapshotFunc
}

func (c *collectionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collectionSizeDesc
	ch <- collectionStaleDesc
	ch <- needsCredentialDesc
}

func (c *collectionCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.snapshot()
	ch <- prometheus.MustNewConstMetric(collectionSizeDesc, prometheus.GaugeValue, float64(len(snap.Links)))
	ch <- prometheus.MustNewConstMetric(collectionStaleDesc, prometheus.GaugeValue, boolValue(snap.Stale))
	ch <- prometheus.MustNewConstMetric(needsCredentialDesc, prometheus.GaugeValue, boolValue(snap.NeedsCredential))
}

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Engine commands by command and outcome",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Engine command latency, remote round trip included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Local API requests by route and status class",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.commands,
		m.commandDuration,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// WatchEngine registers a collector reading snap on every scrape.
// Call it once.
func (m *Metrics) WatchEngine(snap SnapshotFunc) {
	m.registry.MustRegister(&collectionCollector{snapshot: snap})
}

// ObserveCommand implements engine.Recorder.
func (m *Metrics) ObserveCommand(command, outcome string, d time.Duration) {
	m.commands.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ObserveHTTP counts one local API request. code is the status class
// ("2xx", "4xx", ...) to keep cardinality low.
func (m *Metrics) ObserveHTTP(route string, status int) {
	m.httpRequests.WithLabelValues(route, statusClass(status)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	}
	return "1xx"
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
