package aclkit

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for permission checking. All methods
// are safe on a nil receiver, so instrumentation stays optional.
type Metrics struct {
	registry *prometheus.Registry

	decisions     *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	roleChecks    *prometheus.CounterVec
	checkErrors   *prometheus.CounterVec
}

// NewMetrics creates a metrics collector backed by its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aclkit_decisions_total",
			Help: "Resolved permission decisions by outcome.",
		}, []string{"permission"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aclkit_check_duration_seconds",
			Help:    "Latency of permission check operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		roleChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aclkit_role_checks_total",
			Help: "Role membership resolutions by role and result.",
		}, []string{"role", "member"}),
		checkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aclkit_errors_total",
			Help: "Check failures by error class.",
		}, []string{"class"}),
	}

	registry.MustRegister(m.decisions, m.checkDuration, m.roleChecks, m.checkErrors)
	return m
}

// Registry returns the underlying Prometheus registry, for callers that
// aggregate it into their own exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision counts a resolved decision.
func (m *Metrics) RecordDecision(p Permission) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(p)).Inc()
}

// ObserveCheck records the duration of one check operation.
func (m *Metrics) ObserveCheck(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.checkDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordRoleCheck counts one role membership resolution.
func (m *Metrics) RecordRoleCheck(role string, member bool) {
	if m == nil {
		return
	}
	result := "no"
	if member {
		result = "yes"
	}
	m.roleChecks.WithLabelValues(role, result).Inc()
}

// RecordError counts a failed check by error class.
func (m *Metrics) RecordError(err error) {
	if m == nil || err == nil {
		return
	}

	class := "other"
	switch {
	case IsStoreError(err):
		class = "store"
	case IsResolverError(err):
		class = "resolver"
	case IsInvalidRequest(err):
		class = "invalid_request"
	case IsNotFound(err):
		class = "not_found"
	}
	m.checkErrors.WithLabelValues(class).Inc()
}
