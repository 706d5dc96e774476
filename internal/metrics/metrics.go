// Package metrics exposes prometheus instrumentation for the admission
// subsystem and an HTTP middleware for the chi router.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconcilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_reconciles_total",
			Help: "Total number of listing reconciliations",
		},
		[]string{"result"},
	)
	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_rejections_total",
			Help: "Total number of bookings auto-rejected",
		},
		[]string{"reason"},
	)
	StatusWritesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admission_status_writes_total",
			Help: "Total number of availabilityStatus corrections written",
		},
	)
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "admission_sync_sweep_duration_seconds",
			Help:    "Duration of full status-sync sweeps",
			Buckets: prometheus.DefBuckets,
		},
	)
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// NormalizePath collapses a request path to its first segment so the metric
// cardinality stays bounded.
func NormalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	if idx := strings.Index(p, "/"); idx >= 0 {
		p = p[:idx]
	}
	if p == "" {
		return "root"
	}
	return p
}

// Middleware records request counts and latencies for every route except the
// metrics endpoint itself.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start).Seconds()
		path := NormalizePath(r.URL.Path)
		status := strconv.Itoa(ww.Status())
		RequestTotal.WithLabelValues(r.Method, path, status).Inc()
		RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}
