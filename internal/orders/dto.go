package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tapcards-backend/internal/media"
	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/locale"
)

// ListFilters describe the admin order list filters.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Channel       *enums.OrderChannel
	PackID        *int64
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Query         string
}

// CreateOrderInput is an untrusted storefront submission. Enum fields stay raw
// strings so every problem is reported together.
type CreateOrderInput struct {
	PackID         int64   `json:"pack_id" form:"pack_id" validate:"required,gt=0"`
	TemplateID     *int64  `json:"template_id" form:"template_id" validate:"omitempty,gt=0"`
	ClientName     string  `json:"client_name" form:"client_name" validate:"required,max=160"`
	ClientEmail    string  `json:"client_email" form:"client_email" validate:"required,email,max=255"`
	Phone          string  `json:"phone" form:"phone" validate:"required,max=40"`
	City           string  `json:"city" form:"city" validate:"required,max=120"`
	Neighborhood   *string `json:"neighborhood" form:"neighborhood" validate:"omitempty,max=160"`
	Orientation    string  `json:"orientation" form:"orientation" validate:"required"`
	CardModel      string  `json:"card_model" form:"card_model" validate:"omitempty,oneof=white black gold"`
	Color          *string `json:"color" form:"color" validate:"omitempty,max=60"`
	CardholderName *string `json:"cardholder_name" form:"cardholder_name" validate:"omitempty,max=160"`
	JobTitle       *string `json:"job_title" form:"job_title" validate:"omitempty,max=160"`
	BusinessName   *string `json:"business_name" form:"business_name" validate:"omitempty,max=160"`
	ReviewURL      *string `json:"review_url" form:"review_url" validate:"omitempty,url"`
	Notes          *string `json:"notes" form:"notes" validate:"omitempty,max=2000"`
	Quantity       int     `json:"quantity" form:"quantity" validate:"required,gte=1"`
	Channel        string  `json:"channel" form:"channel" validate:"required,oneof=form whatsapp"`

	Logo  *media.Upload `json:"-" form:"-"`
	Brief *media.Upload `json:"-" form:"-"`

	UserID *int64 `json:"-" form:"-"`
}

// Actor identifies who triggered an administrative change.
type Actor struct {
	UserID int64
	Role   enums.UserRole
}

type PackSummary struct {
	ID          int64             `json:"id"`
	Slug        string            `json:"slug"`
	Name        locale.Text       `json:"name"`
	ProductKind enums.ProductKind `json:"product_kind"`
}

type TemplateSummary struct {
	ID   int64       `json:"id"`
	Name locale.Text `json:"name"`
}

type CustomerSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ValidationSummary struct {
	ID               int64                  `json:"id"`
	AmountPaid       decimal.Decimal        `json:"amount_paid"`
	ValidationStatus enums.ValidationStatus `json:"validation_status"`
	AdminNotes       *string                `json:"admin_notes,omitempty"`
	ValidatedAt      *time.Time             `json:"validated_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// OrderView is the order returned to clients, with relations embedded.
type OrderView struct {
	ID             int64               `json:"id"`
	Reference      uuid.UUID           `json:"reference"`
	Status         enums.OrderStatus   `json:"status"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	Channel        enums.OrderChannel  `json:"channel"`
	ClientName     string              `json:"client_name"`
	ClientEmail    string              `json:"client_email"`
	Phone          string              `json:"phone"`
	City           string              `json:"city"`
	Neighborhood   *string             `json:"neighborhood,omitempty"`
	Orientation    enums.Orientation   `json:"orientation"`
	CardModel      enums.CardModel     `json:"card_model"`
	Color          *string             `json:"color,omitempty"`
	CardholderName *string             `json:"cardholder_name,omitempty"`
	JobTitle       *string             `json:"job_title,omitempty"`
	BusinessName   *string             `json:"business_name,omitempty"`
	ReviewURL      *string             `json:"review_url,omitempty"`
	Notes          *string             `json:"notes,omitempty"`
	Quantity       int                 `json:"quantity"`
	Currency       string              `json:"currency"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	AppliedOfferID *int64              `json:"applied_offer_id,omitempty"`
	Files          map[string]string   `json:"files,omitempty"`
	ShippedAt      *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Pack           *PackSummary        `json:"pack,omitempty"`
	Template       *TemplateSummary    `json:"template,omitempty"`
	User           *CustomerSummary    `json:"user,omitempty"`
	Validations    []ValidationSummary `json:"payment_validations,omitempty"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// ToView projects an order. File URLs are filled in by the service.
func ToView(o models.Order) OrderView {
	view := OrderView{
		ID:             o.ID,
		Reference:      o.Reference,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		Channel:        o.Channel,
		ClientName:     o.ClientName,
		ClientEmail:    o.ClientEmail,
		Phone:          o.Phone,
		City:           o.City,
		Neighborhood:   o.Neighborhood,
		Orientation:    o.Orientation,
		CardModel:      o.CardModel,
		Color:          o.Color,
		CardholderName: o.CardholderName,
		JobTitle:       o.JobTitle,
		BusinessName:   o.BusinessName,
		ReviewURL:      o.ReviewURL,
		Notes:          o.Notes,
		Quantity:       o.Quantity,
		Currency:       o.Currency,
		UnitPrice:      o.UnitPrice,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		TotalAmount:    o.TotalAmount,
		AppliedOfferID: o.AppliedOfferID,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
		CancelledAt:    o.CancelledAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.Pack != nil {
		view.Pack = &PackSummary{ID: o.Pack.ID, Slug: o.Pack.Slug, Name: o.Pack.Name, ProductKind: o.Pack.ProductKind}
	}
	if o.Template != nil {
		view.Template = &TemplateSummary{ID: o.Template.ID, Name: o.Template.Name}
	}
	if o.User != nil {
		view.User = &CustomerSummary{ID: o.User.ID, Name: o.User.Name, Email: o.User.Email}
	}
	for _, v := range o.PaymentValidations {
		view.Validations = append(view.Validations, ValidationSummary{
			ID:               v.ID,
			AmountPaid:       v.AmountPaid,
			ValidationStatus: v.ValidationStatus,
			AdminNotes:       v.AdminNotes,
			ValidatedAt:      v.ValidatedAt,
			CreatedAt:        v.CreatedAt,
		})
	}
	return view
}

// fileKeys maps the response file names to stored object keys.
func fileKeys(o models.Order) map[string]string {
	keys := map[string]string{}
	if o.LogoPath != nil {
		keys["logo"] = *o.LogoPath
	}
	if o.BriefPath != nil {
		keys["brief"] = *o.BriefPath
	}
	if o.PaymentScreenshotPath != nil {
		keys["payment_proof"] = *o.PaymentScreenshotPath
	}
	return keys
}
