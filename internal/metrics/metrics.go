package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "push_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Delivery metrics
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Per-endpoint delivery outcomes",
		},
		[]string{"channel", "outcome"}, // channel: "mobile"|"web", outcome: "sent"|"failed"|"stale"
	)

	EndpointsPruned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_endpoints_pruned_total",
			Help: "Registry rows deleted after provider-confirmed invalidity",
		},
		[]string{"channel"},
	)

	FanoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_fanouts_total",
			Help: "Total delivery requests dispatched",
		},
	)

	// Outbound latency per channel
	GatewayLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_gateway_latency_seconds",
			Help:    "Mobile gateway batch POST latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	WebPushLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_webpush_latency_seconds",
			Help:    "Browser push POST latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
