package orders

import (
	"time"

	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
)

var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusInProgress, enums.OrderStatusCancelled},
	enums.OrderStatusInProgress: {enums.OrderStatusPaid, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:       {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusCancelled},
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// transitionUpdates returns the extra columns written when entering to.
func transitionUpdates(from, to enums.OrderStatus, at time.Time) (map[string]any, error) {
	if from.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already "+string(from)).
			WithDetails(map[string]any{"status": from})
	}
	if !CanTransition(from, to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move from "+string(from)+" to "+string(to)).
			WithDetails(map[string]any{"status": from, "target": to})
	}
	updates := map[string]any{}
	switch to {
	case enums.OrderStatusShipped:
		updates["shipped_at"] = at
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = at
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = at
	case enums.OrderStatusPaid:
		updates["payment_status"] = enums.PaymentStatusPaid
	case enums.OrderStatusInProgress:
		updates["payment_status"] = enums.PaymentStatusPending
	}
	return updates, nil
}
