package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce           sync.Once
	activityRequestsTotal  *prometheus.CounterVec
	activityLatencySeconds *prometheus.HistogramVec
	activityErrorsTotal    *prometheus.CounterVec
	bulkOperationsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for activity log observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		activityRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_requests_total",
			Help: "Total number of activity log API requests served.",
		}, []string{"method", "route", "status"})

		activityLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "activity_latency_seconds",
			Help:    "Latency distribution for activity log API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		activityErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_errors_total",
			Help: "Total number of error responses returned by activity log endpoints.",
		}, []string{"method", "route", "status"})

		bulkOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_bulk_operations_total",
			Help: "Total number of bulk operations by operation and outcome.",
		}, []string{"operation", "outcome"})

		prometheus.MustRegister(activityRequestsTotal, activityLatencySeconds, activityErrorsTotal, bulkOperationsTotal)
	})
}

// ActivityRequests exposes the counter for activity log requests.
func ActivityRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return activityRequestsTotal
}

// ActivityLatency exposes the latency histogram for activity log requests.
func ActivityLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return activityLatencySeconds
}

// ActivityErrors exposes the counter for activity log error responses.
func ActivityErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return activityErrorsTotal
}

// BulkOperations exposes the counter for bulk export/archive/delete outcomes.
func BulkOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return bulkOperationsTotal
}

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
