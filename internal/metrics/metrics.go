// Package metrics exposes the service's prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts API requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wire",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served.",
	}, []string{"method", "route", "status"})

	// HTTPDuration tracks request latency per route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wire",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	// WSConnections gauges live websocket connections across all users.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wire",
		Subsystem: "realtime",
		Name:      "connections",
		Help:      "Open websocket connections.",
	})

	// FanoutEvents counts queue events by kind and outcome.
	FanoutEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wire",
		Subsystem: "fanout",
		Name:      "events_total",
		Help:      "Fan-out events processed.",
	}, []string{"kind", "outcome"})

	// FanoutDuration tracks how long one event takes to fan out.
	FanoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wire",
		Subsystem: "fanout",
		Name:      "event_duration_seconds",
		Help:      "Per-event fan-out latency.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	// FeedDeliveries counts individual feed writes during fan-out.
	FeedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wire",
		Subsystem: "fanout",
		Name:      "feed_deliveries_total",
		Help:      "Feed entries written by the fan-out worker.",
	})
)

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
