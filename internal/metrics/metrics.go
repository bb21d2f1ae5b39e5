// Package metrics exposes Prometheus collectors for the pagequery service.
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

// Scrape modes recorded by ObserveScrape.
const (
	ModeRendered = "rendered"
	ModeDirect   = "direct"
)

var (
	permissionChecksTotal      *prometheus.CounterVec
	scrapesTotal               *prometheus.CounterVec
	scrapeTextBytes            *prometheus.HistogramVec
	queriesTotal               *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		permissionChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagequery_permission_checks_total",
				Help: "Robots permission checks, labeled by site and result.",
			},
			[]string{"site", "result"},
		)

		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagequery_scrapes_total",
				Help: "Scrape attempts, labeled by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		)

		scrapeTextBytes = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagequery_scrape_text_bytes",
				Help:    "Size of extracted text per successful scrape.",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
			[]string{"mode"},
		)

		queriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagequery_queries_total",
				Help: "Model queries, labeled by outcome.",
			},
			[]string{"outcome"},
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
	return promhttp.Handler()
}

// ObservePermission records a robots check outcome.
func ObservePermission(site string, allowed bool) {
	Init()
	result := "denied"
	if allowed {
		result = "allowed"
	}
	permissionChecksTotal.WithLabelValues(SanitizeSite(site), result).Inc()
}

// ObserveScrape records a scrape attempt. textBytes is ignored unless the
// outcome is "success".
func ObserveScrape(mode, outcome string, textBytes int) {
	Init()
	scrapesTotal.WithLabelValues(mode, outcome).Inc()
	if outcome == "success" {
		scrapeTextBytes.WithLabelValues(mode).Observe(float64(textBytes))
	}
}

// ObserveQuery records a relay outcome.
func ObserveQuery(outcome string) {
	Init()
	queriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
