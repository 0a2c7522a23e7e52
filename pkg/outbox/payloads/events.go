package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tapcards-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once an order has been priced and stored.
type OrderCreatedEvent struct {
	OrderID     int64              `json:"order_id"`
	Reference   uuid.UUID          `json:"reference"`
	ClientName  string             `json:"client_name"`
	ClientEmail string             `json:"client_email"`
	PackID      int64              `json:"pack_id"`
	ProductKind enums.ProductKind  `json:"product_kind"`
	Quantity    int                `json:"quantity"`
	Channel     enums.OrderChannel `json:"channel"`
	TotalAmount string             `json:"total_amount"`
	Currency    string             `json:"currency"`
}

// OrderStatusChangedEvent records a lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID     int64             `json:"order_id"`
	Reference   uuid.UUID         `json:"reference"`
	ClientEmail string            `json:"client_email"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Reason      string            `json:"reason,omitempty"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// PaymentProofSubmittedEvent tells reviewers a new proof is waiting.
type PaymentProofSubmittedEvent struct {
	OrderID      int64     `json:"order_id"`
	Reference    uuid.UUID `json:"reference"`
	ValidationID int64     `json:"validation_id"`
	ClientName   string    `json:"client_name"`
	ClientEmail  string    `json:"client_email"`
	AmountPaid   string    `json:"amount_paid"`
	Currency     string    `json:"currency"`
}

// PaymentDecidedEvent carries the outcome handed to the customer.
type PaymentDecidedEvent struct {
	OrderID      int64                 `json:"order_id"`
	Reference    uuid.UUID             `json:"reference"`
	ValidationID int64                 `json:"validation_id"`
	ClientEmail  string                `json:"client_email"`
	Outcome      enums.DecisionOutcome `json:"outcome"`
	Note         string                `json:"note,omitempty"`
	DecidedBy    int64                 `json:"decided_by"`
	DecidedAt    time.Time             `json:"decided_at"`
}

// PaymentReminderEvent nudges a customer whose order still has no accepted proof.
type PaymentReminderEvent struct {
	OrderID      int64     `json:"order_id"`
	Reference    uuid.UUID `json:"reference"`
	ClientName   string    `json:"client_name"`
	ClientEmail  string    `json:"client_email"`
	TotalAmount  string    `json:"total_amount"`
	Currency     string    `json:"currency"`
	PendingHours int       `json:"pending_hours"`
}
