package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the workflow engine.
type Metrics struct {
	ApplicationsCreated  prometheus.Counter
	TransitionsCommitted *prometheus.CounterVec
	TransitionsRejected  *prometheus.CounterVec
}

// New creates and registers the workflow metrics.
func New() *Metrics {
	return &Metrics{
		ApplicationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "internhub_applications_created_total",
			Help: "Total number of applications submitted",
		}),
		TransitionsCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "internhub_transitions_committed_total",
			Help: "Total number of committed status transitions",
		}, []string{"to_status", "actor_kind"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "internhub_transitions_rejected_total",
			Help: "Total number of rejected status transitions",
		}, []string{"from_status"}),
	}
}

// RecordCommitted counts one committed transition.
func (m *Metrics) RecordCommitted(toStatus, actorKind string) {
	if m == nil {
		return
	}
	m.TransitionsCommitted.WithLabelValues(toStatus, actorKind).Inc()
}

// RecordRejected counts one state-machine rejection.
func (m *Metrics) RecordRejected(fromStatus string) {
	if m == nil {
		return
	}
	m.TransitionsRejected.WithLabelValues(fromStatus).Inc()
}

// RecordCreated counts one submitted application.
func (m *Metrics) RecordCreated() {
	if m == nil {
		return
	}
	m.ApplicationsCreated.Inc()
}
