package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cinebase"

// Metrics holds every collector the service exports.
type Metrics struct {
	// HTTP latency in seconds by route pattern, method and status.
	HTTPLatency *prometheus.HistogramVec

	// Store operations by op (get|set|delete|delete_prefix) and result (hit|miss|ok|error).
	CacheOps *prometheus.CounterVec

	CacheOpLatency *prometheus.HistogramVec

	// Read path outcomes by kind and origin (HIT|MISS).
	CacheReads *prometheus.CounterVec

	// Writes whose cache invalidation failed after the repository commit.
	InvalidationFailures *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry, which keeps tests independent of each other.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"path", "method", "status_code"},
		),
		CacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_operations_total",
				Help:      "Cache store operations by operation and result.",
			},
			[]string{"op", "result"},
		),
		CacheOpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_operation_duration_seconds",
				Help:      "Cache store operation latency in seconds.",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"op"},
		),
		CacheReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_reads_total",
				Help:      "Cached reads by entity kind and origin.",
			},
			[]string{"kind", "origin"},
		),
		InvalidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_invalidation_failures_total",
				Help:      "Writes that committed but could not invalidate the cache.",
			},
			[]string{"kind"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPLatency,
		m.CacheOps,
		m.CacheOpLatency,
		m.CacheReads,
		m.InvalidationFailures,
	)

	return m
}

// ObserveCacheOp records one store operation.
func (m *Metrics) ObserveCacheOp(op, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.CacheOps.WithLabelValues(op, result).Inc()
	m.CacheOpLatency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordRead records the origin of a cached read.
func (m *Metrics) RecordRead(kind, origin string) {
	if m == nil {
		return
	}
	m.CacheReads.WithLabelValues(kind, origin).Inc()
}

// RecordInvalidationFailure counts a write left with possibly stale cache entries.
func (m *Metrics) RecordInvalidationFailure(kind string) {
	if m == nil {
		return
	}
	m.InvalidationFailures.WithLabelValues(kind).Inc()
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware measures request latency. The chi route pattern is used as the
// path label so ids do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		m.HTTPLatency.
			WithLabelValues(path, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
