package metrics

import "github.com/prometheus/client_golang/prometheus"

// Publish outcomes recorded by OutboxMetrics.
const (
	OutboxPublished    = "published"
	OutboxRetry        = "retry"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics counts outbox deliveries by event type and outcome.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_deliveries_total",
			Help: "Outbox rows handled by the publisher, by outcome.",
		}, []string{"event_type", "outcome"}),
	}
	reg.MustRegister(m.deliveries)
	return m
}

func (m *OutboxMetrics) Delivery(eventType, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
