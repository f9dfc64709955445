// Package metrics exposes Prometheus collectors for the mirror.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mirrorRequestsTotal          *prometheus.CounterVec
	mirrorFetchesTotal           *prometheus.CounterVec
	mirrorBytesTotal             *prometheus.CounterVec
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec
	mirrorActiveWorkers          prometheus.Gauge
	mirrorQueueDepth             prometheus.Gauge
	mirrorOutstandingFailures    prometheus.Gauge
	mirrorRateLimitDelaysSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times; every observer calls it.
func Init() {
	once.Do(func() {
		mirrorRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mirror_requests_total",
				Help: "Total number of processed fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		mirrorFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mirror_fetches_total",
				Help: "Total number of upstream GETs, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		mirrorBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mirror_bytes_total",
				Help: "Total number of bytes written to the mirror, labeled by site.",
			},
			[]string{"site"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		mirrorActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mirror_active_workers",
				Help: "Number of workers currently processing a request.",
			},
		)

		mirrorQueueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mirror_queue_depth",
				Help: "Number of requests waiting in the queue.",
			},
		)

		mirrorOutstandingFailures = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mirror_outstanding_failures",
				Help: "Number of URLs whose most recent attempt failed.",
			},
		)

		mirrorRateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mirror_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveOutcome counts one processed attempt.
func ObserveOutcome(outcome string) {
	Init()
	mirrorRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch counts one upstream GET. status is "ok" or "error".
func ObserveFetch(rawURL, status string) {
	Init()
	mirrorFetchesTotal.WithLabelValues(SanitizeSite(rawURL), status).Inc()
}

// ObserveBytes adds bytes written for a file mirrored from rawURL.
func ObserveBytes(rawURL string, n int64) {
	if n <= 0 {
		return
	}
	Init()
	mirrorBytesTotal.WithLabelValues(SanitizeSite(rawURL)).Add(float64(n))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	mirrorActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	mirrorActiveWorkers.Dec()
}

// SetQueueDepth records the number of waiting requests.
func SetQueueDepth(n int) {
	Init()
	mirrorQueueDepth.Set(float64(n))
}

// SetOutstandingFailures records the size of the failure set.
func SetOutstandingFailures(n int) {
	Init()
	mirrorOutstandingFailures.Set(float64(n))
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	mirrorRateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}
