package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the HTTP-layer Prometheus collectors on a dedicated
// registry, so the scrape endpoint serves only this service's series.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewAPIMetrics creates and registers the HTTP collectors.
func NewAPIMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "books_api_requests_total",
			Help: "HTTP requests processed, by method, route, and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "books_api_request_duration_seconds",
			Help:    "HTTP request latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(m.RequestsTotal, m.RequestDuration)
	return m
}
