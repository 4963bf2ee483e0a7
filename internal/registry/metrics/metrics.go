// Package metrics exposes Prometheus instrumentation for the registration
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registry counters. A nil *Metrics is valid and records
// nothing, so tests can skip registration entirely.
type Metrics struct {
	RegistrationsTotal *prometheus.CounterVec
	RejectionsTotal    *prometheus.CounterVec
	CredentialGrants   prometheus.Counter
	LoginsTotal        prometheus.Counter
}

// New creates and registers all registry metrics on the default registerer.
func New() *Metrics {
	return &Metrics{
		RegistrationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "did_registry_registrations_total",
			Help: "Completed registrations by entity type",
		}, []string{"entity_type"}),
		RejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "did_registry_rejections_total",
			Help: "Rejected registrations by rejection kind",
		}, []string{"kind"}),
		CredentialGrants: promauto.NewCounter(prometheus.CounterOpts{
			Name: "did_registry_credential_grants_total",
			Help: "Access grants applied to domain records",
		}),
		LoginsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "did_registry_logins_total",
			Help: "Successful private-key logins",
		}),
	}
}

func (m *Metrics) IncRegistered(entityType string) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(entityType).Inc()
}

func (m *Metrics) IncRejected(kind string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncCredentialGrant() {
	if m == nil {
		return
	}
	m.CredentialGrants.Inc()
}

func (m *Metrics) IncLogin() {
	if m == nil {
		return
	}
	m.LoginsTotal.Inc()
}
