package metrics

import "github.com/prometheus/client_golang/prometheus"

// WorkflowMetrics tracks order intake and payment review throughput.
type WorkflowMetrics struct {
	ordersCreated   *prometheus.CounterVec
	proofsSubmitted prometheus.Counter
	decisions       *prometheus.CounterVec
}

func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	m := &WorkflowMetrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders accepted at intake.",
		}, []string{"channel", "product_kind"}),
		proofsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payment_proofs_submitted_total",
			Help: "Payment proofs uploaded by customers or administrators.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_validations_decided_total",
			Help: "Payment validations approved or rejected.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.ordersCreated, m.proofsSubmitted, m.decisions)
	return m
}

func (m *WorkflowMetrics) OrderCreated(channel, productKind string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(channel), normalizeLabel(productKind)).Inc()
}

func (m *WorkflowMetrics) ProofSubmitted() {
	if m == nil || m.proofsSubmitted == nil {
		return
	}
	m.proofsSubmitted.Inc()
}

func (m *WorkflowMetrics) PaymentDecided(outcome string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(outcome)).Inc()
}
