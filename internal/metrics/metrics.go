// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns a private registry and the application collectors.
type Manager struct {
	Registry          *prometheus.Registry
	AnnonceOperations *prometheus.CounterVec
	AuthLogins        *prometheus.CounterVec
	HTTPLatency       *prometheus.HistogramVec
}

// NewManager creates and registers all collectors, plus the Go runtime and
// process collectors.
func NewManager() *Manager {
	registry := prometheus.NewRegistry()

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "annonce_operations_total",
		Help: "Annonce engine operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	registry.MustRegister(
		operations,
		logins,
		latency,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Manager{
		Registry:          registry,
		AnnonceOperations: operations,
		AuthLogins:        logins,
		HTTPLatency:       latency,
	}
}

// Observe counts one engine operation.
func (m *Manager) Observe(operation, outcome string) {
	m.AnnonceOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveLogin counts one login attempt.
func (m *Manager) ObserveLogin(outcome string) {
	m.AuthLogins.WithLabelValues(outcome).Inc()
}

// ObserveRequest records the latency of one HTTP request.
func (m *Manager) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
