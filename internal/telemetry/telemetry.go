// Package telemetry exposes Prometheus collectors for the crawler service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placecrawler_crawls_total",
			Help: "Total number of orchestrated crawls, labeled by platform and terminal status.",
		},
		[]string{"platform", "status"},
	)

	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placecrawler_attempts_total",
			Help: "Total number of crawl attempts, labeled by platform and outcome.",
		},
		[]string{"platform", "outcome"},
	)

	attemptDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placecrawler_attempt_duration_seconds",
			Help:    "Histogram of navigate+extract attempt latencies, labeled by platform.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 45, 60},
		},
		[]string{"platform"},
	)

	activeCrawls = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "placecrawler_active_crawls",
			Help: "Number of crawls currently in flight, labeled by platform.",
		},
		[]string{"platform"},
	)

	tagMergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placecrawler_tag_merges_total",
			Help: "Total number of client tag-merge operations, labeled by status.",
		},
		[]string{"status"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"method", "route"},
	)
)

// CrawlStarted marks a crawl as in flight.
func CrawlStarted(platform string) {
	activeCrawls.WithLabelValues(platform).Inc()
}

// CrawlFinished marks a crawl as no longer in flight.
func CrawlFinished(platform string) {
	activeCrawls.WithLabelValues(platform).Dec()
}

// ObserveCrawl records the terminal status of one orchestrated crawl.
func ObserveCrawl(platform, status string) {
	crawlsTotal.WithLabelValues(platform, status).Inc()
}

// ObserveAttempt records one navigate+extract attempt.
func ObserveAttempt(platform, outcome string, d time.Duration) {
	attemptsTotal.WithLabelValues(platform, outcome).Inc()
	attemptDurationSeconds.WithLabelValues(platform).Observe(d.Seconds())
}

// ObserveTagMerge records one client tag-merge operation.
func ObserveTagMerge(status string) {
	tagMergesTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest records metrics for a served HTTP request.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
