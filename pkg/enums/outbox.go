package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateOrder             OutboxAggregateType = "order"
	AggregatePaymentValidation OutboxAggregateType = "payment_validation"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder || a == AggregatePaymentValidation
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	a := OutboxAggregateType(value)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid aggregate type %q", value)
	}
	return a, nil
}

// OutboxEventType names a domain event written to the outbox.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventPaymentProofSubmitted OutboxEventType = "payment_proof_submitted"
	EventPaymentDecided        OutboxEventType = "payment_decided"
	EventPaymentReminder       OutboxEventType = "payment_reminder"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventPaymentProofSubmitted,
	EventPaymentDecided,
	EventPaymentReminder,
}

func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
