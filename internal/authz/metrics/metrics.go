// Package metrics exposes Prometheus instruments for context resolution
// and privileged-procedure enforcement.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the authorization-context instruments.
type Metrics struct {
	Resolutions        *prometheus.CounterVec
	MissingContext     prometheus.Counter
	TenantMismatches   prometheus.Counter
	StaleClaims        prometheus.Counter
	PrivilegedCalls    *prometheus.CounterVec
	AuditWriteFailures prometheus.Counter
}

// New creates and registers all instruments on the default registerer.
func New() *Metrics {
	return &Metrics{
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantguard_context_resolutions_total",
			Help: "Successful context resolutions, labelled by which input produced the value.",
		}, []string{"source"}),
		MissingContext: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tenantguard_missing_context_total",
			Help: "Resolutions that failed closed because no input yielded a tenant id.",
		}),
		TenantMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tenantguard_tenant_mismatch_total",
			Help: "Caller-asserted tenant ids rejected against the resolved context.",
		}),
		StaleClaims: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tenantguard_stale_claims_total",
			Help: "Claim-derived resolutions older than the freshness threshold.",
		}),
		PrivilegedCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantguard_privileged_calls_total",
			Help: "Privileged procedure invocations, labelled by outcome.",
		}, []string{"outcome"}),
		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tenantguard_audit_write_failures_total",
			Help: "Audit appends rejected by the store; fatal for privileged mutations.",
		}),
	}
}

func (m *Metrics) IncResolution(source string) {
	m.Resolutions.WithLabelValues(source).Inc()
}

func (m *Metrics) IncPrivilegedCall(outcome string) {
	m.PrivilegedCalls.WithLabelValues(outcome).Inc()
}
