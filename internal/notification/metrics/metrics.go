package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the notification pipeline.
type Metrics struct {
	EntriesCreated       *prometheus.CounterVec
	DuplicatesSuppressed *prometheus.CounterVec
	DeliveryOutcomes     *prometheus.CounterVec
}

// New creates and registers the notification metrics.
func New() *Metrics {
	return &Metrics{
		EntriesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "internhub_notifications_created_total",
			Help: "Total number of notification log entries created",
		}, []string{"event_kind"}),
		DuplicatesSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "internhub_notifications_deduplicated_total",
			Help: "Total number of duplicate notification triggers suppressed",
		}, []string{"event_kind"}),
		DeliveryOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "internhub_notification_deliveries_total",
			Help: "Total number of delivery attempts by outcome",
		}, []string{"event_kind", "outcome"}),
	}
}

// RecordCreated counts a freshly inserted entry.
func (m *Metrics) RecordCreated(kind string) {
	if m == nil {
		return
	}
	m.EntriesCreated.WithLabelValues(kind).Inc()
}

// RecordSuppressed counts a duplicate trigger returned untouched.
func (m *Metrics) RecordSuppressed(kind string) {
	if m == nil {
		return
	}
	m.DuplicatesSuppressed.WithLabelValues(kind).Inc()
}

// RecordDelivery counts a hand-off outcome ("sent" or "failed").
func (m *Metrics) RecordDelivery(kind, outcome string) {
	if m == nil {
		return
	}
	m.DeliveryOutcomes.WithLabelValues(kind, outcome).Inc()
}
