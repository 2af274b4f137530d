// Package metrics registers the Prometheus instruments for the org portal
// and provides the HTTP instrumentation middleware and /metrics handler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// GateDecisions counts request gate outcomes by decision.
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Request gate outcomes (allow, redirect_login, redirect_clear, set_cookie_redirect).",
		},
		[]string{"decision"},
	)

	// TokenVerifications counts outbound verification calls by result.
	TokenVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_verifications_total",
			Help: "Outbound token verification calls by result (valid, invalid, error).",
		},
		[]string{"result"},
	)

	// VerdictCacheHits counts verification verdicts served from cache.
	VerdictCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verdict_cache_hits_total",
		Help: "Token verification verdicts served from the cache.",
	})

	// VerdictCacheMisses counts cache lookups that required a network call.
	VerdictCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verdict_cache_misses_total",
		Help: "Token verification cache misses (including expired entries).",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument records request count and latency for each request.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}
