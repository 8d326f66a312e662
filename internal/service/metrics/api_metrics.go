package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "creditrisk",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of scoring API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "creditrisk",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by scoring API endpoint",
		},
		[]string{"endpoint", "kind"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "creditrisk",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client limiter",
		},
		[]string{"endpoint"},
	)

	LiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "creditrisk",
			Subsystem: "api",
			Name:      "live_subscribers",
			Help:      "Open websocket prediction feeds",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, RateLimited, LiveSubscribers)
	})
}
