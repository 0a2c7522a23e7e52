package orders

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/internal/catalog"
	"github.com/angelmondragon/tapcards-backend/internal/media"
	"github.com/angelmondragon/tapcards-backend/pkg/db"
	"github.com/angelmondragon/tapcards-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/locale"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox"
	"github.com/angelmondragon/tapcards-backend/pkg/storage"
	"github.com/angelmondragon/tapcards-backend/pkg/storage/local"
)

var (
	testNow   = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	admin     = Actor{UserID: 1, Role: enums.UserRoleAdmin}
)

type testEnv struct {
	db        *gorm.DB
	client    *db.Client
	store     *local.Store
	svc       *service
	pack      models.Pack
	review    models.Pack
	template  models.Template
	foreignTp models.Template
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()

	env := &testEnv{db: conn, client: client}
	env.pack = models.Pack{Slug: "nfc-solo", Name: locale.Text{"fr": "Solo"}, ProductKind: enums.ProductKindNFCCard,
		Price: decimal.RequireFromString("200"), BlackSurcharge: decimal.RequireFromString("50"), Currency: "MAD", IsActive: true}
	env.review = models.Pack{Slug: "reviews", Name: locale.Text{"fr": "Avis"}, ProductKind: enums.ProductKindReviewCard,
		Price: decimal.RequireFromString("3.5"), Currency: "MAD", IsActive: true}
	require.NoError(t, conn.Create(&env.pack).Error)
	require.NoError(t, conn.Create(&env.review).Error)

	env.template = models.Template{PackID: env.pack.ID, Name: locale.Text{"fr": "Minimal"}, IsActive: true}
	env.foreignTp = models.Template{PackID: env.review.ID, Name: locale.Text{"fr": "Étoiles"}, IsActive: true}
	require.NoError(t, conn.Create(&env.template).Error)
	require.NoError(t, conn.Create(&env.foreignTp).Error)

	store, err := local.New(t.TempDir(), "http://files.test")
	require.NoError(t, err)
	env.store = store

	files, err := media.NewService(store, media.Limits{ImageMaxBytes: 5 << 20, DocumentMaxBytes: 10 << 20}, logger.Nop())
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn), files, client,
		outbox.NewService(outbox.NewRepository(conn), logger.Nop()), nil, logger.Nop())
	require.NoError(t, err)
	env.svc = svc.(*service)
	env.svc.now = func() time.Time { return testNow }
	return env
}

func (e *testEnv) validInput() CreateOrderInput {
	tpl := e.template.ID
	return CreateOrderInput{
		PackID:      e.pack.ID,
		TemplateID:  &tpl,
		ClientName:  "Salma Idrissi",
		ClientEmail: "Salma@Example.ma",
		Phone:       "+212600000000",
		City:        "Rabat",
		Orientation: string(enums.OrientationHorizontal),
		Quantity:    3,
		Channel:     string(enums.ChannelForm),
	}
}

func pngUpload(kind media.Kind) *media.Upload {
	return &media.Upload{Kind: kind, Field: string(kind), FileName: "logo.png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)}
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

func outboxEvents(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, conn.Where("event_type = ?", eventType).Find(&rows).Error)
	return rows
}

// failingCreateRepo rejects inserts so tests can observe upload cleanup.
type failingCreateRepo struct {
	Repository
}

func (r failingCreateRepo) WithTx(tx *gorm.DB) Repository {
	return failingCreateRepo{Repository: r.Repository.WithTx(tx)}
}

func (r failingCreateRepo) Create(context.Context, *models.Order) error {
	return gorm.ErrInvalidDB
}

// briefRejectingBackend stores everything except briefs and remembers deletions.
type briefRejectingBackend struct {
	storage.Backend
	deleted []string
}

func (b *briefRejectingBackend) Put(ctx context.Context, obj storage.Object) error {
	if strings.Contains(obj.Key, "/brief/") {
		return errors.New("bucket unavailable")
	}
	return b.Backend.Put(ctx, obj)
}

func (b *briefRejectingBackend) Delete(ctx context.Context, key string) error {
	b.deleted = append(b.deleted, key)
	return b.Backend.Delete(ctx, key)
}

func (e *testEnv) useBackend(t *testing.T, backend storage.Backend) {
	t.Helper()
	files, err := media.NewService(backend, media.Limits{ImageMaxBytes: 5 << 20, DocumentMaxBytes: 10 << 20}, logger.Nop())
	require.NoError(t, err)
	e.svc.files = files
}
