// Package observability provides Prometheus metrics and pipeline middleware
// for monitoring an expresso server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// RequestBuckets defines histogram buckets for request handling latency,
// ranging from 1ms to 10s.
var RequestBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts all requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expresso_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records request handling duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "expresso_request_duration_seconds",
			Help:    "Request duration",
			Buckets: RequestBuckets,
		},
		[]string{"method", "route"},
	)

	// ConnectionsActive tracks the number of connections currently being served.
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "expresso_connections_active",
			Help: "Active connections",
		},
	)

	// ParseErrorsTotal counts requests rejected by the parser, by error type.
	ParseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expresso_parse_errors_total",
			Help: "Request parse errors",
		},
		[]string{"type"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "expresso_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ConnectionsActive,
		ParseErrorsTotal,
		RateLimitRejectedTotal,
	)
}
