// Package metrics exposes Prometheus instrumentation for the gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP-level collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "HTTP requests handled, by method, route, and status.",
		}, []string{"service", "method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.inFlight)
	return m
}

// IncrementInFlight marks a request as started.
func (m *Metrics) IncrementInFlight() { m.inFlight.Inc() }

// DecrementInFlight marks a request as finished.
func (m *Metrics) DecrementInFlight() { m.inFlight.Dec() }

// RecordHTTPRequest records one handled request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.requests.WithLabelValues(service, method, path, status).Inc()
	m.duration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// Handler serves the Prometheus exposition endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
