package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox/payloads"
)

func buildActor(actor Actor) *outbox.ActorRef {
	if actor.UserID == 0 && actor.Role == "" {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func (s *service) emitCreated(ctx context.Context, tx *gorm.DB, order *models.Order, kind enums.ProductKind) error {
	var actor *outbox.ActorRef
	if order.UserID != nil {
		actor = &outbox.ActorRef{UserID: *order.UserID, Role: string(enums.UserRoleCustomer)}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		OccurredAt:    order.CreatedAt,
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			Reference:   order.Reference,
			ClientName:  order.ClientName,
			ClientEmail: order.ClientEmail,
			PackID:      order.PackID,
			ProductKind: kind,
			Quantity:    order.Quantity,
			Channel:     order.Channel,
			TotalAmount: order.TotalAmount.StringFixed(2),
			Currency:    order.Currency,
		},
	})
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus, actor *outbox.ActorRef, reason string, at time.Time) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		OccurredAt:    at,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			Reference:   order.Reference,
			ClientEmail: order.ClientEmail,
			From:        from,
			To:          order.Status,
			Reason:      reason,
			ChangedAt:   at,
		},
	})
}
