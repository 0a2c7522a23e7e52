// Package pricing turns a pack, its live offers and a quantity into an order total.
package pricing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Input is everything Price needs. Offers may include inactive rows; they are filtered at Now.
type Input struct {
	Pack      models.Pack
	CardModel enums.CardModel
	Quantity  int
	Offers    []models.PackOffer
	Now       time.Time
}

// Quote is a priced order line.
type Quote struct {
	PackID         int64           `json:"pack_id"`
	Currency       string          `json:"currency"`
	Quantity       int             `json:"quantity"`
	CardModel      enums.CardModel `json:"card_model"`
	BasePrice      decimal.Decimal `json:"base_price"`
	Surcharge      decimal.Decimal `json:"surcharge"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	AppliedOffer   *AppliedOffer   `json:"applied_offer,omitempty"`
	Perks          []Perk          `json:"perks"`
	IgnoredOffers  []int64         `json:"-"`
}

// AppliedOffer is the single discount that reduced the total.
type AppliedOffer struct {
	OfferID  int64           `json:"offer_id"`
	Value    string          `json:"value"`
	Amount   decimal.Decimal `json:"amount"`
	StartsAt time.Time       `json:"starts_at"`
}

// Perk is a free_item or bundle offer shown to the customer without changing the price.
type Perk struct {
	OfferID int64           `json:"offer_id"`
	Type    enums.OfferType `json:"type"`
	Value   string          `json:"value"`
}

type discountCandidate struct {
	offer  models.PackOffer
	amount decimal.Decimal
}

// Price computes the quote. Quantity and finish are validated before any arithmetic.
func Price(in Input) (*Quote, error) {
	if !in.Pack.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeCatalogUnavailable, "pack is not available").
			WithDetails(pkgerrors.FieldErrors{"pack_id": {"pack is not available"}})
	}
	if err := CheckQuantity(in.Pack.ProductKind, in.Quantity); err != nil {
		return nil, err
	}
	model := in.CardModel
	if model == "" {
		model = enums.CardModelWhite
	}
	surcharge, err := CardModelSurcharge(in.Pack, model)
	if err != nil {
		return nil, err
	}
	if in.Pack.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("pack %d has a negative price", in.Pack.ID))
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	unit := round(in.Pack.Price.Add(surcharge))
	subtotal := round(unit.Mul(decimal.NewFromInt(int64(in.Quantity))))

	quote := &Quote{
		PackID:         in.Pack.ID,
		Currency:       currencyOf(in.Pack),
		Quantity:       in.Quantity,
		CardModel:      model,
		BasePrice:      round(in.Pack.Price),
		Surcharge:      round(surcharge),
		UnitPrice:      unit,
		Subtotal:       subtotal,
		DiscountAmount: decimal.Zero,
		Perks:          []Perk{},
	}

	var candidates []discountCandidate
	for _, offer := range in.Offers {
		if offer.PackID != 0 && offer.PackID != in.Pack.ID {
			continue
		}
		if !offer.ActiveAt(now) {
			continue
		}
		if !offer.Type.AffectsPrice() {
			quote.Perks = append(quote.Perks, Perk{OfferID: offer.ID, Type: offer.Type, Value: offer.Value})
			continue
		}
		value, ok := ParseDiscount(offer.Value, quote.Currency)
		if !ok {
			quote.IgnoredOffers = append(quote.IgnoredOffers, offer.ID)
			continue
		}
		candidates = append(candidates, discountCandidate{offer: offer, amount: value.AmountOn(subtotal)})
	}

	if best, ok := pickDiscount(candidates); ok {
		quote.DiscountAmount = best.amount
		quote.AppliedOffer = &AppliedOffer{
			OfferID:  best.offer.ID,
			Value:    best.offer.Value,
			Amount:   best.amount,
			StartsAt: best.offer.StartsAt,
		}
	}

	total := subtotal.Sub(quote.DiscountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	quote.Total = round(total)
	return quote, nil
}

// pickDiscount keeps the largest amount; ties go to the latest starts_at, then the highest id.
func pickDiscount(candidates []discountCandidate) (discountCandidate, bool) {
	if len(candidates) == 0 {
		return discountCandidate{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if cmp := a.amount.Cmp(b.amount); cmp != 0 {
			return cmp > 0
		}
		if !a.offer.StartsAt.Equal(b.offer.StartsAt) {
			return a.offer.StartsAt.After(b.offer.StartsAt)
		}
		return a.offer.ID > b.offer.ID
	})
	return candidates[0], true
}

// QuantityBounds returns the accepted [min, max] order quantity for a product kind.
func QuantityBounds(kind enums.ProductKind) (int, int) {
	switch kind {
	case enums.ProductKindReviewCard:
		return 50, 5000
	default:
		return 1, 1000
	}
}

// CheckQuantity rejects quantities outside the product bounds.
func CheckQuantity(kind enums.ProductKind, quantity int) error {
	lo, hi := QuantityBounds(kind)
	if quantity < lo || quantity > hi {
		return pkgerrors.Validation(pkgerrors.FieldErrors{
			"quantity": {fmt.Sprintf("quantity must be between %d and %d", lo, hi)},
		})
	}
	return nil
}

// CardModelSurcharge returns the per-card finish surcharge. Review cards only come in white.
func CardModelSurcharge(pack models.Pack, model enums.CardModel) (decimal.Decimal, error) {
	if !model.IsValid() {
		return decimal.Zero, invalidModel("unknown card model")
	}
	if model == enums.CardModelWhite {
		return decimal.Zero, nil
	}
	if pack.ProductKind != enums.ProductKindNFCCard {
		return decimal.Zero, invalidModel("this product is only available in white")
	}
	var surcharge decimal.Decimal
	switch model {
	case enums.CardModelBlack:
		surcharge = pack.BlackSurcharge
	case enums.CardModelGold:
		surcharge = pack.GoldSurcharge
	}
	if surcharge.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInternal, "negative card surcharge")
	}
	return surcharge, nil
}

func invalidModel(msg string) error {
	return pkgerrors.Validation(pkgerrors.FieldErrors{"card_model": {msg}})
}

func currencyOf(pack models.Pack) string {
	if c := strings.TrimSpace(pack.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return "MAD"
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}
