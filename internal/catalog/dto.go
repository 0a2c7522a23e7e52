package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tapcards-backend/internal/pricing"
	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
)

// PackView is a pack with its text resolved for one locale.
type PackView struct {
	ID          int64                               `json:"id"`
	Slug        string                              `json:"slug"`
	Name        string                              `json:"name"`
	Description string                              `json:"description"`
	ProductKind enums.ProductKind                   `json:"product_kind"`
	Price       decimal.Decimal                     `json:"price"`
	Currency    string                              `json:"currency"`
	Highlight   bool                                `json:"highlight"`
	CardModels  map[enums.CardModel]decimal.Decimal `json:"card_models"`
	Orientation []enums.Orientation                 `json:"orientations"`
	MinQuantity int                                 `json:"min_quantity"`
	MaxQuantity int                                 `json:"max_quantity"`
	Offers      []OfferView                         `json:"offers"`
	Templates   []TemplateView                      `json:"templates,omitempty"`
}

type TemplateView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	PreviewPath *string `json:"preview_path,omitempty"`
}

type OfferView struct {
	ID       int64           `json:"id"`
	Type     enums.OfferType `json:"type"`
	Label    string          `json:"label"`
	Value    string          `json:"value"`
	StartsAt time.Time       `json:"starts_at"`
	EndsAt   time.Time       `json:"ends_at"`
}

func toPackView(p models.Pack, offers []models.PackOffer, lang, fallback string) PackView {
	lo, hi := pricing.QuantityBounds(p.ProductKind)
	view := PackView{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name.Resolve(lang, fallback),
		Description: p.Description.Resolve(lang, fallback),
		ProductKind: p.ProductKind,
		Price:       p.Price,
		Currency:    p.Currency,
		Highlight:   p.Highlight,
		CardModels:  cardModels(p),
		Orientation: enums.OrientationsFor(p.ProductKind),
		MinQuantity: lo,
		MaxQuantity: hi,
		Offers:      make([]OfferView, 0, len(offers)),
	}
	for _, o := range offers {
		view.Offers = append(view.Offers, OfferView{
			ID:       o.ID,
			Type:     o.Type,
			Label:    o.Label.Resolve(lang, fallback),
			Value:    o.Value,
			StartsAt: o.StartsAt,
			EndsAt:   o.EndsAt,
		})
	}
	return view
}

func cardModels(p models.Pack) map[enums.CardModel]decimal.Decimal {
	finishes := map[enums.CardModel]decimal.Decimal{enums.CardModelWhite: decimal.Zero}
	if p.ProductKind != enums.ProductKindNFCCard {
		return finishes
	}
	finishes[enums.CardModelBlack] = p.BlackSurcharge
	finishes[enums.CardModelGold] = p.GoldSurcharge
	return finishes
}

func toTemplateView(t models.Template, lang, fallback string) TemplateView {
	return TemplateView{
		ID:          t.ID,
		Name:        t.Name.Resolve(lang, fallback),
		Description: t.Description.Resolve(lang, fallback),
		PreviewPath: t.PreviewPath,
	}
}
