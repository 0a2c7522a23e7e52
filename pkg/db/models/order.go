package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/enums"
)

// Order is one customer purchase of a pack, optionally with a template.
type Order struct {
	ID             int64              `gorm:"column:id;primaryKey;autoIncrement"`
	Reference      uuid.UUID          `gorm:"column:reference;type:uuid;not null;uniqueIndex"`
	PackID         int64              `gorm:"column:pack_id;not null;index"`
	TemplateID     *int64             `gorm:"column:template_id;index"`
	UserID         *int64             `gorm:"column:user_id;index"`
	ClientName     string             `gorm:"column:client_name;type:varchar(160);not null"`
	ClientEmail    string             `gorm:"column:client_email;type:varchar(255);not null;index"`
	Phone          string             `gorm:"column:phone;type:varchar(40);not null"`
	City           string             `gorm:"column:city;type:varchar(120);not null"`
	Neighborhood   *string            `gorm:"column:neighborhood;type:varchar(160)"`
	Orientation    enums.Orientation  `gorm:"column:orientation;type:varchar(32);not null"`
	CardModel      enums.CardModel    `gorm:"column:card_model;type:varchar(16);not null;default:'white'"`
	Color          *string            `gorm:"column:color;type:varchar(60)"`
	CardholderName *string            `gorm:"column:cardholder_name;type:varchar(160)"`
	JobTitle       *string            `gorm:"column:job_title;type:varchar(160)"`
	BusinessName   *string            `gorm:"column:business_name;type:varchar(160)"`
	ReviewURL      *string            `gorm:"column:review_url;type:text"`
	Notes          *string            `gorm:"column:notes;type:text"`
	Quantity       int                `gorm:"column:quantity;not null"`
	Channel        enums.OrderChannel `gorm:"column:channel;type:varchar(16);not null"`

	Status        enums.OrderStatus   `gorm:"column:status;type:varchar(32);not null;default:'pending';index"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:varchar(32);not null;default:'pending'"`

	Currency       string          `gorm:"column:currency;type:varchar(3);not null;default:'MAD'"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	AppliedOfferID *int64          `gorm:"column:applied_offer_id"`

	LogoPath              *string `gorm:"column:logo_path"`
	BriefPath             *string `gorm:"column:brief_path"`
	PaymentScreenshotPath *string `gorm:"column:payment_screenshot_path"`

	PaymentReminderSentAt *time.Time     `gorm:"column:payment_reminder_sent_at"`
	ShippedAt             *time.Time     `gorm:"column:shipped_at"`
	DeliveredAt           *time.Time     `gorm:"column:delivered_at"`
	CancelledAt           *time.Time     `gorm:"column:cancelled_at"`
	CreatedAt             time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt             gorm.DeletedAt `gorm:"column:deleted_at;index"`

	Pack               *Pack               `gorm:"foreignKey:PackID"`
	Template           *Template           `gorm:"foreignKey:TemplateID"`
	User               *User               `gorm:"foreignKey:UserID"`
	PaymentValidations []PaymentValidation `gorm:"foreignKey:OrderID"`
}

// PaymentValidation is a submitted proof of payment awaiting an administrator's ruling.
type PaymentValidation struct {
	ID               int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID          int64                  `gorm:"column:order_id;not null;index;uniqueIndex:ux_payment_validations_one_pending,where:validation_status = 'pending'"`
	AmountPaid       decimal.Decimal        `gorm:"column:amount_paid;type:numeric(12,2);not null"`
	ClientNotes      *string                `gorm:"column:client_notes;type:text"`
	PaymentProofPath string                 `gorm:"column:payment_proof_path;not null"`
	ValidationStatus enums.ValidationStatus `gorm:"column:validation_status;type:varchar(16);not null;default:'pending';index"`
	AdminNotes       *string                `gorm:"column:admin_notes;type:text"`
	ValidatedBy      *int64                 `gorm:"column:validated_by"`
	ValidatedAt      *time.Time             `gorm:"column:validated_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`

	Order     *Order `gorm:"foreignKey:OrderID"`
	Validator *User  `gorm:"foreignKey:ValidatedBy"`
}
