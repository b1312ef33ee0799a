package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	authAttemptsTotal  *prometheus.CounterVec
	authLatencySeconds *prometheus.HistogramVec
	auditEventsTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the auth subsystem.
func RegisterMetrics() {
	registerOnce.Do(func() {
		authAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total authentication attempts by mode and outcome.",
		}, []string{"mode", "outcome"})

		authLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_latency_seconds",
			Help:    "Latency distribution for authentication requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"mode"})

		auditEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Total audit events recorded by type and outcome.",
		}, []string{"type", "outcome"})

		prometheus.MustRegister(authAttemptsTotal, authLatencySeconds, auditEventsTotal)
	})
}

// AuthAttempts exposes the counter for authentication attempts.
func AuthAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return authAttemptsTotal
}

// AuthLatency exposes the latency histogram for authentication requests.
func AuthLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return authLatencySeconds
}

// AuditEvents exposes the counter for recorded audit events.
func AuditEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return auditEventsTotal
}
