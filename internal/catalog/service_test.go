package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/locale"
)

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	active   models.Pack
	inactive models.Pack
	review   models.Pack
}

func seed(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := fixture{db: conn}

	f.active = models.Pack{
		Slug:           "nfc-solo",
		Name:           locale.Text{"fr": "Carte Solo", "en": "Solo Card"},
		ProductKind:    enums.ProductKindNFCCard,
		Price:          decimal.RequireFromString("200"),
		BlackSurcharge: decimal.RequireFromString("50"),
		GoldSurcharge:  decimal.RequireFromString("100"),
		Currency:       "MAD",
		IsActive:       true,
		SortOrder:      2,
	}
	f.inactive = models.Pack{Slug: "legacy", Name: locale.Text{"fr": "Ancien"}, ProductKind: enums.ProductKindNFCCard, Price: decimal.RequireFromString("90"), Currency: "MAD"}
	f.review = models.Pack{Slug: "reviews", Name: locale.Text{"fr": "Avis"}, ProductKind: enums.ProductKindReviewCard, Price: decimal.RequireFromString("3.5"), Currency: "MAD", IsActive: true, SortOrder: 1}
	for _, p := range []*models.Pack{&f.active, &f.inactive, &f.review} {
		require.NoError(t, conn.Create(p).Error)
	}

	require.NoError(t, conn.Create(&[]models.Template{
		{PackID: f.active.ID, Name: locale.Text{"fr": "Minimal"}, IsActive: true},
		{PackID: f.active.ID, Name: locale.Text{"fr": "Retiré"}, IsActive: false},
	}).Error)

	require.NoError(t, conn.Create(&[]models.PackOffer{
		{PackID: f.active.ID, Type: enums.OfferTypeDiscount, Value: "20%", Label: locale.Text{"fr": "Printemps", "en": "Spring"}, StartsAt: fixedNow.Add(-time.Hour), EndsAt: fixedNow.Add(time.Hour), IsActive: true},
		{PackID: f.active.ID, Type: enums.OfferTypeDiscount, Value: "50%", StartsAt: fixedNow.Add(-48 * time.Hour), EndsAt: fixedNow.Add(-24 * time.Hour), IsActive: true},
		{PackID: f.review.ID, Type: enums.OfferTypeFreeItem, Value: "1 stand", StartsAt: fixedNow.Add(-time.Hour), EndsAt: fixedNow.Add(time.Hour), IsActive: true},
	}).Error)
	return f
}

func newTestService(t *testing.T, conn *gorm.DB) *service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), "fr")
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return impl
}

func TestListPacksReturnsActivePacksInOrder(t *testing.T) {
	f := seed(t)
	svc := newTestService(t, f.db)

	packs, err := svc.ListPacks(context.Background(), "en")
	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "reviews", packs[0].Slug)
	assert.Equal(t, "Avis", packs[0].Name, "falls back to the default locale")
	assert.Equal(t, 50, packs[0].MinQuantity)
	assert.Len(t, packs[0].CardModels, 1)

	assert.Equal(t, "Solo Card", packs[1].Name)
	require.Len(t, packs[1].Offers, 1)
	assert.Equal(t, "Spring", packs[1].Offers[0].Label)
}

func TestGetPackIncludesActiveTemplates(t *testing.T) {
	f := seed(t)
	svc := newTestService(t, f.db)

	pack, err := svc.GetPack(context.Background(), f.active.ID, "fr")
	require.NoError(t, err)
	require.Len(t, pack.Templates, 1)
	assert.Equal(t, "Minimal", pack.Templates[0].Name)
	assert.True(t, pack.CardModels[enums.CardModelGold].Equal(decimal.RequireFromString("100")))
	assert.Equal(t, []enums.Orientation{enums.OrientationVertical, enums.OrientationHorizontal}, pack.Orientation)
}

func TestGetPackHidesInactiveAndMissing(t *testing.T) {
	f := seed(t)
	svc := newTestService(t, f.db)

	_, err := svc.GetPack(context.Background(), f.inactive.ID, "fr")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetPack(context.Background(), 9999, "fr")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryOfferWindowIsInclusive(t *testing.T) {
	f := seed(t)
	repo := NewRepository(f.db)

	offers, err := repo.ListActiveOffers(context.Background(), f.active.ID, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "20%", offers[0].Value)

	offers, err = repo.ListActiveOffers(context.Background(), f.active.ID, fixedNow.Add(time.Hour+time.Second))
	require.NoError(t, err)
	assert.Empty(t, offers)
}
