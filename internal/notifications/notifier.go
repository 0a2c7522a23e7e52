package notifications

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/internal/payments"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OutboxNotifier records payment decisions as payment_decided events. The
// consumer turns them into inbox rows once the outbox publisher delivers them.
type OutboxNotifier struct {
	outbox outboxPublisher
}

func NewOutboxNotifier(publisher outboxPublisher) (*OutboxNotifier, error) {
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &OutboxNotifier{outbox: publisher}, nil
}

func (n *OutboxNotifier) Notify(ctx context.Context, tx *gorm.DB, decision payments.Decision) error {
	if decision.ValidationID <= 0 {
		return fmt.Errorf("validation id required")
	}
	switch decision.Outcome {
	case enums.OutcomeApproved, enums.OutcomeRejected:
	default:
		return fmt.Errorf("unsupported outcome %q", decision.Outcome)
	}
	var actor *outbox.ActorRef
	if decision.DecidedBy > 0 {
		actor = &outbox.ActorRef{UserID: decision.DecidedBy, Role: string(enums.UserRoleAdmin)}
	}
	return n.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentDecided,
		AggregateType: enums.AggregatePaymentValidation,
		AggregateID:   decision.ValidationID,
		Actor:         actor,
		OccurredAt:    decision.DecidedAt,
		Data: payloads.PaymentDecidedEvent{
			OrderID:      decision.OrderID,
			Reference:    decision.Reference,
			ValidationID: decision.ValidationID,
			ClientEmail:  decision.ClientEmail,
			Outcome:      decision.Outcome,
			Note:         decision.Note,
			DecidedBy:    decision.DecidedBy,
			DecidedAt:    decision.DecidedAt,
		},
	})
}
