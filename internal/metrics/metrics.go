// Package metrics exposes Prometheus instrumentation for searches, metadata
// collaborators, the HTTP API and the shared cache.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudseek/cloudseek/internal/cache"
)

const namespace = "cloudseek"

// Metrics owns a registry and every collector registered on it.
type Metrics struct {
	registry *prometheus.Registry

	queries       *prometheus.CounterVec
	phases        *prometheus.CounterVec
	results       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	failures      *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates a Metrics instance on a fresh registry with Go runtime and
// process collectors attached.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Search queries by content type and outcome",
		}, []string{"content_type", "outcome"}),
		phases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_phase_entered_total",
			Help:      "Number of times each coordinator phase was entered",
		}, []string{"phase"}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_results_total",
			Help:      "Matched files returned by searches",
		}, []string{"content_type"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search query duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"content_type"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_failures_total",
			Help:      "Failed provider or metadata calls that were degraded to empty results",
		}, []string{"collaborator", "operation"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterCache exposes the cache's counters and gauges.
func (m *Metrics) RegisterCache(src StatsSource) error {
	if m == nil {
		return nil
	}
	return m.registry.Register(newCacheCollector(src))
}

// ObserveQuery records one finished search.
func (m *Metrics) ObserveQuery(contentType, outcome string, results int, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(contentType, outcome).Inc()
	m.results.WithLabelValues(contentType).Add(float64(results))
	m.queryDuration.WithLabelValues(contentType).Observe(d.Seconds())
}

// PhaseEntered counts a coordinator phase transition.
func (m *Metrics) PhaseEntered(phase string) {
	if m == nil {
		return
	}
	m.phases.WithLabelValues(phase).Inc()
}

// CollaboratorFailure counts a degraded provider or metadata call.
func (m *Metrics) CollaboratorFailure(collaborator, operation string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(collaborator, operation).Inc()
}

// SetBreakerState records a circuit breaker state (0 closed, 1 half-open, 2 open).
func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(state)
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// StatsSource is anything that reports cache statistics.
type StatsSource interface {
	Stats() cache.Stats
}

type cacheCollector struct {
	src StatsSource

	entries     *prometheus.Desc
	maxEntries  *prometheus.Desc
	hits        *prometheus.Desc
	misses      *prometheus.Desc
	evictions   *prometheus.Desc
	expirations *prometheus.Desc
	sweeps      *prometheus.Desc
}

func newCacheCollector(src StatsSource) *cacheCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, nil, nil)
	}
	return &cacheCollector{
		src:         src,
		entries:     desc("entries", "Current number of cache entries"),
		maxEntries:  desc("max_entries", "Cache capacity"),
		hits:        desc("hits_total", "Cache hits"),
		misses:      desc("misses_total", "Cache misses"),
		evictions:   desc("evictions_total", "Entries evicted at capacity"),
		expirations: desc("expirations_total", "Entries dropped after their TTL"),
		sweeps:      desc("sweeps_total", "Completed expiry sweeps"),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.maxEntries
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.expirations
	ch <- c.sweeps
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.maxEntries, prometheus.GaugeValue, float64(s.MaxSize))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.expirations, prometheus.CounterValue, float64(s.Expirations))
	ch <- prometheus.MustNewConstMetric(c.sweeps, prometheus.CounterValue, float64(s.Sweeps))
}
