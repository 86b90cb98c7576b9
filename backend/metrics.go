package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the reservation client.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	ErrorsTotal     *prometheus.CounterVec
	BookingsTotal   *prometheus.CounterVec
	CacheTotal      *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_requests_total",
			Help: "Total HTTP requests issued against the reservation site.",
		},
		[]string{"method"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reservation_request_duration_seconds",
			Help:    "HTTP request latency against the reservation site.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_errors_total",
			Help: "Total errors by type.",
		},
		[]string{"error_type"},
	)
	bookings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_bookings_total",
			Help: "Booking transaction outcomes.",
		},
		[]string{"outcome"},
	)
	cache := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_grid_cache_total",
			Help: "Availability grid cache hits, misses, and per-user bypasses.",
		},
		[]string{"result"},
	)

	registry.MustRegister(requests, requestDuration, errorsTotal, bookings, cache)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		ErrorsTotal:     errorsTotal,
		BookingsTotal:   bookings,
		CacheTotal:      cache,
	}
}

// IncRequest increments the request counter for an HTTP method.
func (m *Metrics) IncRequest(method string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncError increments the error counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncBooking increments the booking outcome counter.
func (m *Metrics) IncBooking(outcome string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(outcome).Inc()
}

// IncCache increments the grid-cache counter.
func (m *Metrics) IncCache(result string) {
	if m == nil {
		return
	}
	m.CacheTotal.WithLabelValues(result).Inc()
}
