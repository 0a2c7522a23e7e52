package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tapcards-backend/internal/media"
	"github.com/angelmondragon/tapcards-backend/internal/orders"
	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
)

type ListFilters struct {
	Status  *enums.ValidationStatus
	OrderID *int64
}

// SubmitProofInput attaches a payment proof to an order, addressed either by
// public reference (customer) or by id (administrator).
type SubmitProofInput struct {
	OrderID     int64
	Reference   uuid.UUID
	AmountPaid  *decimal.Decimal
	ClientNotes *string
	Proof       *media.Upload
	Actor       orders.Actor
}

// DecisionInput is an administrator ruling on a pending validation.
type DecisionInput struct {
	ValidationID int64
	Notes        *string
	Actor        orders.Actor
}

type OrderSummary struct {
	ID            int64               `json:"id"`
	Reference     uuid.UUID           `json:"reference"`
	ClientName    string              `json:"client_name"`
	ClientEmail   string              `json:"client_email"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Currency      string              `json:"currency"`
}

type ValidationView struct {
	ID               int64                  `json:"id"`
	OrderID          int64                  `json:"order_id"`
	AmountPaid       decimal.Decimal        `json:"amount_paid"`
	ClientNotes      *string                `json:"client_notes,omitempty"`
	ProofURL         string                 `json:"payment_proof_url,omitempty"`
	ValidationStatus enums.ValidationStatus `json:"validation_status"`
	AdminNotes       *string                `json:"admin_notes,omitempty"`
	ValidatedBy      *int64                 `json:"validated_by,omitempty"`
	ValidatedAt      *time.Time             `json:"validated_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	Order            *OrderSummary          `json:"order,omitempty"`
}

type ValidationList struct {
	Validations []ValidationView `json:"payment_validations"`
	NextCursor  string           `json:"next_cursor,omitempty"`
}

func toView(v models.PaymentValidation) ValidationView {
	view := ValidationView{
		ID:               v.ID,
		OrderID:          v.OrderID,
		AmountPaid:       v.AmountPaid,
		ClientNotes:      v.ClientNotes,
		ValidationStatus: v.ValidationStatus,
		AdminNotes:       v.AdminNotes,
		ValidatedBy:      v.ValidatedBy,
		ValidatedAt:      v.ValidatedAt,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
	if o := v.Order; o != nil {
		view.Order = &OrderSummary{
			ID:            o.ID,
			Reference:     o.Reference,
			ClientName:    o.ClientName,
			ClientEmail:   o.ClientEmail,
			Status:        o.Status,
			PaymentStatus: o.PaymentStatus,
			TotalAmount:   o.TotalAmount,
			Currency:      o.Currency,
		}
	}
	return view
}
