package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func nfcPack(price string) models.Pack {
	return models.Pack{
		ID:             1,
		ProductKind:    enums.ProductKindNFCCard,
		Price:          decimal.RequireFromString(price),
		BlackSurcharge: decimal.RequireFromString("50"),
		GoldSurcharge:  decimal.RequireFromString("100"),
		Currency:       "MAD",
		IsActive:       true,
	}
}

func offer(id int64, typ enums.OfferType, value string, startsAt time.Time) models.PackOffer {
	return models.PackOffer{
		ID:       id,
		PackID:   1,
		Type:     typ,
		Value:    value,
		StartsAt: startsAt,
		EndsAt:   now.Add(24 * time.Hour),
		IsActive: true,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPriceWithoutOffersIsPriceTimesQuantity(t *testing.T) {
	for _, tc := range []struct {
		price string
		qty   int
		want  string
	}{
		{"200", 3, "600"},
		{"199.99", 1, "199.99"},
		{"0", 10, "0"},
		{"12.345", 2, "24.70"},
	} {
		quote, err := Price(Input{Pack: nfcPack(tc.price), Quantity: tc.qty, Now: now})
		require.NoError(t, err)
		assert.True(t, quote.Total.Equal(dec(tc.want)), "price %s x %d: got %s", tc.price, tc.qty, quote.Total)
		assert.True(t, quote.DiscountAmount.IsZero())
		assert.Nil(t, quote.AppliedOffer)
	}
}

func TestPriceAppliesTwentyPercent(t *testing.T) {
	quote, err := Price(Input{
		Pack:     nfcPack("200"),
		Quantity: 3,
		Offers:   []models.PackOffer{offer(1, enums.OfferTypeDiscount, "20%", now.Add(-time.Hour))},
		Now:      now,
	})
	require.NoError(t, err)
	assert.True(t, quote.Subtotal.Equal(dec("600")))
	assert.True(t, quote.DiscountAmount.Equal(dec("120")))
	assert.True(t, quote.Total.Equal(dec("480")))
	require.NotNil(t, quote.AppliedOffer)
	assert.Equal(t, int64(1), quote.AppliedOffer.OfferID)
}

func TestPriceRoundsHalfUp(t *testing.T) {
	quote, err := Price(Input{
		Pack:     nfcPack("0.35"),
		Quantity: 1,
		Offers:   []models.PackOffer{offer(1, enums.OfferTypeDiscount, "10%", now.Add(-time.Hour))},
		Now:      now,
	})
	require.NoError(t, err)
	// 10% of 0.35 is 0.035, which rounds to 0.04.
	assert.Equal(t, "0.04", quote.DiscountAmount.StringFixed(2))
	assert.Equal(t, "0.31", quote.Total.StringFixed(2))
}

func TestPricePicksHighestDiscountOnly(t *testing.T) {
	quote, err := Price(Input{
		Pack:     nfcPack("100"),
		Quantity: 2,
		Offers: []models.PackOffer{
			offer(1, enums.OfferTypeDiscount, "10%", now.Add(-time.Hour)),
			offer(2, enums.OfferTypeDiscount, "50 MAD", now.Add(-2*time.Hour)),
			offer(3, enums.OfferTypeDiscount, "15%", now.Add(-3*time.Hour)),
		},
		Now: now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), quote.AppliedOffer.OfferID)
	assert.True(t, quote.Total.Equal(dec("150")))
}

func TestPriceTieBreaksOnMostRecentStart(t *testing.T) {
	quote, err := Price(Input{
		Pack:     nfcPack("100"),
		Quantity: 1,
		Offers: []models.PackOffer{
			offer(1, enums.OfferTypeDiscount, "20", now.Add(-2*time.Hour)),
			offer(2, enums.OfferTypeDiscount, "20%", now.Add(-time.Hour)),
		},
		Now: now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), quote.AppliedOffer.OfferID)
}

func TestPriceIgnoresInactiveAndUnparsableOffers(t *testing.T) {
	expired := offer(1, enums.OfferTypeDiscount, "50%", now.Add(-48*time.Hour))
	expired.EndsAt = now.Add(-time.Hour)
	disabled := offer(2, enums.OfferTypeDiscount, "50%", now.Add(-time.Hour))
	disabled.IsActive = false
	future := offer(3, enums.OfferTypeDiscount, "50%", now.Add(time.Hour))

	quote, err := Price(Input{
		Pack:     nfcPack("100"),
		Quantity: 1,
		Offers: []models.PackOffer{
			expired, disabled, future,
			offer(4, enums.OfferTypeDiscount, "1 free item", now.Add(-time.Hour)),
			offer(5, enums.OfferTypeFreeItem, "1 free stand", now.Add(-time.Hour)),
		},
		Now: now,
	})
	require.NoError(t, err)
	assert.True(t, quote.Total.Equal(dec("100")))
	assert.Equal(t, []int64{4}, quote.IgnoredOffers)
	require.Len(t, quote.Perks, 1)
	assert.Equal(t, enums.OfferTypeFreeItem, quote.Perks[0].Type)
}

func TestPriceWindowIsInclusive(t *testing.T) {
	edge := offer(1, enums.OfferTypeDiscount, "10%", now)
	edge.EndsAt = now
	quote, err := Price(Input{Pack: nfcPack("100"), Quantity: 1, Offers: []models.PackOffer{edge}, Now: now})
	require.NoError(t, err)
	assert.NotNil(t, quote.AppliedOffer)
}

func TestPriceFixedDiscountNeverGoesNegative(t *testing.T) {
	quote, err := Price(Input{
		Pack:     nfcPack("30"),
		Quantity: 1,
		Offers:   []models.PackOffer{offer(1, enums.OfferTypeDiscount, "500", now.Add(-time.Hour))},
		Now:      now,
	})
	require.NoError(t, err)
	assert.True(t, quote.Total.IsZero())
	assert.True(t, quote.DiscountAmount.Equal(dec("30")))
}

func TestPriceAddsCardModelSurcharge(t *testing.T) {
	quote, err := Price(Input{Pack: nfcPack("200"), CardModel: enums.CardModelGold, Quantity: 2, Now: now})
	require.NoError(t, err)
	assert.True(t, quote.UnitPrice.Equal(dec("300")))
	assert.True(t, quote.Total.Equal(dec("600")))
}

func TestPriceRejectsInactivePack(t *testing.T) {
	pack := nfcPack("200")
	pack.IsActive = false
	_, err := Price(Input{Pack: pack, Quantity: 1, Now: now})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCatalogUnavailable))
}

func TestPriceRejectsReviewCardBelowMinimum(t *testing.T) {
	pack := nfcPack("3.50")
	pack.ProductKind = enums.ProductKindReviewCard
	_, err := Price(Input{Pack: pack, Quantity: 10, Now: now})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.True(t, typed.FieldErrors().Has("quantity"))
}

func TestPriceRejectsFinishOnReviewCards(t *testing.T) {
	pack := nfcPack("3.50")
	pack.ProductKind = enums.ProductKindReviewCard
	_, err := Price(Input{Pack: pack, CardModel: enums.CardModelBlack, Quantity: 50, Now: now})
	require.Error(t, err)
	assert.True(t, pkgerrors.As(err).FieldErrors().Has("card_model"))
}

func TestQuantityBounds(t *testing.T) {
	lo, hi := QuantityBounds(enums.ProductKindNFCCard)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 1000, hi)
	lo, hi = QuantityBounds(enums.ProductKindReviewCard)
	assert.Equal(t, 50, lo)
	assert.Equal(t, 5000, hi)

	assert.Error(t, CheckQuantity(enums.ProductKindNFCCard, 0))
	assert.Error(t, CheckQuantity(enums.ProductKindNFCCard, 1001))
	assert.NoError(t, CheckQuantity(enums.ProductKindReviewCard, 50))
}

func TestParseDiscount(t *testing.T) {
	cases := []struct {
		raw     string
		ok      bool
		percent bool
		value   string
	}{
		{"20%", true, true, "20"},
		{" 12.5 % ", true, true, "12.5"},
		{"50", true, false, "50"},
		{"50.00", true, false, "50"},
		{"50 MAD", true, false, "50"},
		{"mad 50", true, false, "50"},
		{"30dh", true, false, "30"},
		{"19,90 DHS", true, false, "19.9"},
		{"0%", false, false, ""},
		{"150%", false, false, ""},
		{"-10", false, false, ""},
		{"1 free item", false, false, ""},
		{"", false, false, ""},
	}
	for _, tc := range cases {
		got, ok := ParseDiscount(tc.raw, "MAD")
		if ok != tc.ok {
			t.Fatalf("ParseDiscount(%q) ok=%v want %v", tc.raw, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if got.Percent != tc.percent || !got.Value.Equal(dec(tc.value)) {
			t.Fatalf("ParseDiscount(%q) = %+v", tc.raw, got)
		}
	}
}
