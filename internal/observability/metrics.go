package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	apiRequestsTotal   *prometheus.CounterVec
	apiLatencySeconds  *prometheus.HistogramVec
	apiErrorsTotal     *prometheus.CounterVec
	attemptsStarted    prometheus.Counter
	attemptsFinalized  *prometheus.CounterVec
	monitorConnections prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		attemptsStarted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attempts_started_total",
			Help: "Total number of assignment attempts started.",
		})

		attemptsFinalized = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attempts_finalized_total",
			Help: "Total number of attempts finalized, by terminal status.",
		}, []string{"status"})

		monitorConnections = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_connections_total",
			Help: "Total number of attempt monitor websocket connections accepted.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			attemptsStarted,
			attemptsFinalized,
			monitorConnections,
		)
	})
}

// APIRequests exposes the counter for served requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AttemptsStarted exposes the counter for started attempts.
func AttemptsStarted() prometheus.Counter {
	RegisterMetrics()
	return attemptsStarted
}

// AttemptsFinalized exposes the counter for finalized attempts.
func AttemptsFinalized() *prometheus.CounterVec {
	RegisterMetrics()
	return attemptsFinalized
}

// MonitorConnectionsTotal exposes the counter for monitor connections.
func MonitorConnectionsTotal() prometheus.Counter {
	RegisterMetrics()
	return monitorConnections
}
