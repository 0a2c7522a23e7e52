package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/locale"
)

// Pack is a sellable card bundle. Surcharges only apply to NFC card finishes.
type Pack struct {
	ID             int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Slug           string            `gorm:"column:slug;type:varchar(120);not null;uniqueIndex"`
	Name           locale.Text       `gorm:"column:name;not null"`
	Description    locale.Text       `gorm:"column:description"`
	ProductKind    enums.ProductKind `gorm:"column:product_kind;type:varchar(32);not null"`
	Price          decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	BlackSurcharge decimal.Decimal   `gorm:"column:black_surcharge;type:numeric(12,2);not null;default:0"`
	GoldSurcharge  decimal.Decimal   `gorm:"column:gold_surcharge;type:numeric(12,2);not null;default:0"`
	Currency       string            `gorm:"column:currency;type:varchar(3);not null;default:'MAD'"`
	IsActive       bool              `gorm:"column:is_active;not null"`
	Highlight      bool              `gorm:"column:highlight;not null;default:false"`
	SortOrder      int               `gorm:"column:sort_order;not null;default:0"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Templates []Template  `gorm:"foreignKey:PackID"`
	Offers    []PackOffer `gorm:"foreignKey:PackID"`
}

// Template is a visual design available for one pack.
type Template struct {
	ID          int64       `gorm:"column:id;primaryKey;autoIncrement"`
	PackID      int64       `gorm:"column:pack_id;not null;index"`
	Name        locale.Text `gorm:"column:name;not null"`
	Description locale.Text `gorm:"column:description"`
	PreviewPath *string     `gorm:"column:preview_path"`
	IsActive    bool        `gorm:"column:is_active;not null"`
	SortOrder   int         `gorm:"column:sort_order;not null;default:0"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// PackOffer is a time-boxed promotion attached to a pack.
type PackOffer struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	PackID    int64           `gorm:"column:pack_id;not null;index"`
	Type      enums.OfferType `gorm:"column:type;type:varchar(32);not null"`
	Label     locale.Text     `gorm:"column:label"`
	Value     string          `gorm:"column:value;type:varchar(120);not null"`
	StartsAt  time.Time       `gorm:"column:starts_at;not null"`
	EndsAt    time.Time       `gorm:"column:ends_at;not null"`
	IsActive  bool            `gorm:"column:is_active;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ActiveAt reports whether the offer applies at the given instant (inclusive window).
func (o PackOffer) ActiveAt(now time.Time) bool {
	if !o.IsActive {
		return false
	}
	return !now.Before(o.StartsAt) && !now.After(o.EndsAt)
}
