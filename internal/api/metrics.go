// Package api provides the HTTP façade for searchd.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// DefaultMetricsConfig returns default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:  true,
		Endpoint: "/metrics",
	}
}

// MetricsCollector wires searchd's operational counters through the
// real Prometheus client, replacing a hand-rolled text-format writer:
// the corpus already imports client_golang, so /metrics gets the same
// registry-backed collectors any other Go service in the stack would use.
type MetricsCollector struct {
	registry *prometheus.Registry

	searchTotal       *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	searchResultCount prometheus.Histogram
	maskedFieldsTotal prometheus.Counter
	errorsTotal       *prometheus.CounterVec

	seedJobsTotal   *prometheus.CounterVec
	seedRowsWritten prometheus.Counter

	breakerState *prometheus.GaugeVec
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
}

// NewMetricsCollector creates a new metrics collector registered
// against a fresh, private registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &MetricsCollector{
		registry: reg,

		searchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "searchd_search_requests_total",
			Help: "Total number of /search requests, by dataset and strategy.",
		}, []string{"dataset", "strategy"}),

		searchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "searchd_search_duration_seconds",
			Help:    "Duration of /search requests in seconds, by strategy.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),

		searchResultCount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "searchd_search_results_returned",
			Help:    "Number of results returned per search.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),

		maskedFieldsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "searchd_masked_fields_total",
			Help: "Total number of distinct fields masked by governance, summed over searches.",
		}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "searchd_errors_total",
			Help: "Total number of errors, by error code.",
		}, []string{"code"}),

		seedJobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "searchd_seed_jobs_total",
			Help: "Total number of seed jobs started, by dataset and terminal status.",
		}, []string{"dataset", "status"}),

		seedRowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "searchd_seed_rows_written_total",
			Help: "Total number of rows written by seed jobs.",
		}),

		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "searchd_breaker_state",
			Help: "Circuit breaker state by backend (0=closed, 1=half-open, 2=open).",
		}, []string{"backend"}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "searchd_cache_hits_total",
			Help: "Total number of searches served from the cache (cache or hybrid strategy).",
		}),

		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "searchd_cache_misses_total",
			Help: "Total number of searches not served from the cache while a cache backend is registered.",
		}),
	}
}

// RecordSearch records a completed /search request.
func (m *MetricsCollector) RecordSearch(dataset, strategy string, duration time.Duration, resultCount int, maskedFields int) {
	m.searchTotal.WithLabelValues(dataset, strategy).Inc()
	m.searchDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	m.searchResultCount.Observe(float64(resultCount))
	if maskedFields > 0 {
		m.maskedFieldsTotal.Add(float64(maskedFields))
	}
}

// RecordError increments the error counter for the given error code.
func (m *MetricsCollector) RecordError(code string) {
	m.errorsTotal.WithLabelValues(code).Inc()
}

// RecordSeedJob records a seed job's terminal status and rows written.
func (m *MetricsCollector) RecordSeedJob(dataset, status string, rowsWritten int) {
	m.seedJobsTotal.WithLabelValues(dataset, status).Inc()
	if rowsWritten > 0 {
		m.seedRowsWritten.Add(float64(rowsWritten))
	}
}

// SetBreakerState reports a breaker's numeric state for the given backend.
func (m *MetricsCollector) SetBreakerState(backend string, state float64) {
	m.breakerState.WithLabelValues(backend).Set(state)
}

// RecordCacheHit records a search whose results came from the cache.
func (m *MetricsCollector) RecordCacheHit() {
	m.cacheHits.Inc()
}

// RecordCacheMiss records a search whose results did not come from the cache.
func (m *MetricsCollector) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

// Handler returns the promhttp handler serving this collector's registry.
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// handleMetrics handles the /metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		http.Error(w, "metrics not enabled", http.StatusNotImplemented)
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}
