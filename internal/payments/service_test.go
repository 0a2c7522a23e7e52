package payments

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/internal/catalog"
	"github.com/angelmondragon/tapcards-backend/internal/media"
	"github.com/angelmondragon/tapcards-backend/internal/orders"
	"github.com/angelmondragon/tapcards-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/locale"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox"
	"github.com/angelmondragon/tapcards-backend/pkg/pagination"
	"github.com/angelmondragon/tapcards-backend/pkg/storage/local"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	admin     = orders.Actor{UserID: 7, Role: enums.UserRoleAdmin}
)

type recordingNotifier struct {
	decisions []Decision
	err       error
}

func (n *recordingNotifier) Notify(_ context.Context, tx *gorm.DB, decision Decision) error {
	if tx == nil {
		return errors.New("notify outside transaction")
	}
	if n.err != nil {
		return n.err
	}
	n.decisions = append(n.decisions, decision)
	return nil
}

type countingMetrics struct {
	proofs    int
	decisions map[string]int
}

func (m *countingMetrics) ProofSubmitted() { m.proofs++ }

func (m *countingMetrics) PaymentDecided(outcome string) {
	if m.decisions == nil {
		m.decisions = map[string]int{}
	}
	m.decisions[outcome]++
}

type testEnv struct {
	db       *gorm.DB
	store    *local.Store
	orders   orders.Service
	svc      *service
	notifier *recordingNotifier
	metrics  *countingMetrics
	pack     models.Pack
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()

	env := &testEnv{db: conn, notifier: &recordingNotifier{}, metrics: &countingMetrics{}}
	env.pack = models.Pack{Slug: "nfc-solo", Name: locale.Text{"fr": "Solo"}, ProductKind: enums.ProductKindNFCCard,
		Price: decimal.RequireFromString("200"), Currency: "MAD", IsActive: true}
	require.NoError(t, conn.Create(&env.pack).Error)

	store, err := local.New(t.TempDir(), "http://files.test")
	require.NoError(t, err)
	env.store = store

	files, err := media.NewService(store, media.Limits{ImageMaxBytes: 5 << 20, DocumentMaxBytes: 10 << 20}, logger.Nop())
	require.NoError(t, err)
	events := outbox.NewService(outbox.NewRepository(conn), logger.Nop())

	ordersRepo := orders.NewRepository(conn)
	env.orders, err = orders.NewService(ordersRepo, catalog.NewRepository(conn), files, client, events, nil, logger.Nop())
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), ordersRepo, env.orders, files, client, events, env.notifier, env.metrics, logger.Nop())
	require.NoError(t, err)
	env.svc = svc.(*service)
	env.svc.now = func() time.Time { return time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC) }
	return env
}

func (e *testEnv) placeOrder(t *testing.T) *orders.OrderView {
	t.Helper()
	view, err := e.orders.Create(context.Background(), orders.CreateOrderInput{
		PackID:      e.pack.ID,
		ClientName:  "Youssef Amrani",
		ClientEmail: "youssef@example.ma",
		Phone:       "+212611111111",
		City:        "Casablanca",
		Orientation: string(enums.OrientationVertical),
		Quantity:    3,
		Channel:     string(enums.ChannelWhatsApp),
	})
	require.NoError(t, err)
	return view
}

func (e *testEnv) submit(t *testing.T, order *orders.OrderView) *ValidationView {
	t.Helper()
	view, err := e.svc.SubmitProof(context.Background(), SubmitProofInput{Reference: order.Reference, Proof: proofUpload()})
	require.NoError(t, err)
	return view
}

func (e *testEnv) order(t *testing.T, id int64) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, e.db.First(&order, id).Error)
	return order
}

func proofUpload() *media.Upload {
	return &media.Upload{FileName: "virement.png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
	return typed
}

func TestPaymentWorkflowFromOrderToPaid(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	order := env.placeOrder(t)
	require.True(t, order.TotalAmount.Equal(decimal.NewFromInt(600)))
	require.Equal(t, enums.OrderStatusPending, order.Status)

	validation := env.submit(t, order)
	require.Equal(t, enums.ValidationStatusPending, validation.ValidationStatus)
	require.True(t, validation.AmountPaid.Equal(decimal.RequireFromString("600")))
	require.Contains(t, validation.ProofURL, "http://files.test/orders/"+order.Reference.String()+"/payment_proof/")

	stored := env.order(t, order.ID)
	require.Equal(t, enums.OrderStatusInProgress, stored.Status)
	require.NotNil(t, stored.PaymentScreenshotPath)

	approved, err := env.svc.Approve(ctx, DecisionInput{ValidationID: validation.ID, Actor: admin})
	require.NoError(t, err)
	require.Equal(t, enums.ValidationStatusApproved, approved.ValidationStatus)
	require.NotNil(t, approved.ValidatedBy)
	require.Equal(t, admin.UserID, *approved.ValidatedBy)

	stored = env.order(t, order.ID)
	require.Equal(t, enums.OrderStatusPaid, stored.Status)
	require.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)

	require.Len(t, env.notifier.decisions, 1)
	decision := env.notifier.decisions[0]
	require.Equal(t, order.ID, decision.OrderID)
	require.Equal(t, enums.OutcomeApproved, decision.Outcome)
	require.Equal(t, "youssef@example.ma", decision.ClientEmail)

	_, err = env.svc.Approve(ctx, DecisionInput{ValidationID: validation.ID, Actor: admin})
	requireCode(t, err, pkgerrors.CodeAlreadyDecided)
	require.Len(t, env.notifier.decisions, 1)
	require.Equal(t, enums.OrderStatusPaid, env.order(t, order.ID).Status)

	require.Equal(t, 1, env.metrics.proofs)
	require.Equal(t, 1, env.metrics.decisions["approved"])
}

func TestRejectKeepsStatusAndFailsPayment(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	order := env.placeOrder(t)
	validation := env.submit(t, order)

	note := "  montant incorrect  "
	rejected, err := env.svc.Reject(ctx, DecisionInput{ValidationID: validation.ID, Notes: &note, Actor: admin})
	require.NoError(t, err)
	require.Equal(t, enums.ValidationStatusRejected, rejected.ValidationStatus)
	require.NotNil(t, rejected.AdminNotes)
	require.Equal(t, "montant incorrect", *rejected.AdminNotes)

	stored := env.order(t, order.ID)
	require.Equal(t, enums.OrderStatusInProgress, stored.Status)
	require.Equal(t, enums.PaymentStatusFailed, stored.PaymentStatus)

	require.Len(t, env.notifier.decisions, 1)
	require.Equal(t, enums.OutcomeRejected, env.notifier.decisions[0].Outcome)
	require.Equal(t, "montant incorrect", env.notifier.decisions[0].Note)

	_, err = env.svc.Approve(ctx, DecisionInput{ValidationID: validation.ID, Actor: admin})
	requireCode(t, err, pkgerrors.CodeAlreadyDecided)
}

func TestRejectRequiresNotes(t *testing.T) {
	env := newEnv(t)
	order := env.placeOrder(t)
	validation := env.submit(t, order)

	blank := "   "
	_, err := env.svc.Reject(context.Background(), DecisionInput{ValidationID: validation.ID, Notes: &blank, Actor: admin})
	typed := requireCode(t, err, pkgerrors.CodeValidation)
	require.True(t, typed.FieldErrors().Has("admin_notes"))

	var row models.PaymentValidation
	require.NoError(t, env.db.First(&row, validation.ID).Error)
	require.Equal(t, enums.ValidationStatusPending, row.ValidationStatus)
	require.Empty(t, env.notifier.decisions)
}

func TestResubmitAfterRejectionOpensNewValidation(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	order := env.placeOrder(t)
	first := env.submit(t, order)

	note := "illisible"
	_, err := env.svc.Reject(ctx, DecisionInput{ValidationID: first.ID, Notes: &note, Actor: admin})
	require.NoError(t, err)

	second := env.submit(t, order)
	require.NotEqual(t, first.ID, second.ID)
	stored := env.order(t, order.ID)
	require.Equal(t, enums.OrderStatusInProgress, stored.Status)
	require.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)

	_, err = env.svc.Approve(ctx, DecisionInput{ValidationID: second.ID, Actor: admin})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, env.order(t, order.ID).Status)
}

func TestResubmitWhilePendingReplacesProof(t *testing.T) {
	env := newEnv(t)
	order := env.placeOrder(t)
	first := env.submit(t, order)
	second := env.submit(t, order)

	require.Equal(t, first.ID, second.ID)
	require.NotEqual(t, first.ProofURL, second.ProofURL)

	var count int64
	require.NoError(t, env.db.Model(&models.PaymentValidation{}).Where("order_id = ?", order.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var events []models.OutboxEvent
	require.NoError(t, env.db.Where("event_type = ?", enums.EventOrderStatusChanged).Find(&events).Error)
	require.Len(t, events, 1)
}

func TestSubmitProofValidation(t *testing.T) {
	env := newEnv(t)
	order := env.placeOrder(t)
	negative := decimal.RequireFromString("-5")

	_, err := env.svc.SubmitProof(context.Background(), SubmitProofInput{OrderID: order.ID, AmountPaid: &negative})
	typed := requireCode(t, err, pkgerrors.CodeValidation)
	require.Equal(t, []string{"amount_paid", "payment_proof"}, typed.FieldErrors().Fields())

	text := &media.Upload{FileName: "proof.txt", Size: 5, Body: bytes.NewReader([]byte("hello"))}
	_, err = env.svc.SubmitProof(context.Background(), SubmitProofInput{OrderID: order.ID, Proof: text})
	typed = requireCode(t, err, pkgerrors.CodeValidation)
	require.True(t, typed.FieldErrors().Has("payment_proof"))

	require.Equal(t, enums.OrderStatusPending, env.order(t, order.ID).Status)
}

func TestSubmitProofRejectsSettledOrders(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	order := env.placeOrder(t)
	_, err := env.orders.Cancel(ctx, order.ID, admin, "client request")
	require.NoError(t, err)

	_, err = env.svc.SubmitProof(ctx, SubmitProofInput{Reference: order.Reference, Proof: proofUpload()})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	var count int64
	require.NoError(t, env.db.Model(&models.PaymentValidation{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestApproveRequiresInProgressOrder(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	order := env.placeOrder(t)
	validation := env.submit(t, order)
	_, err := env.orders.Cancel(ctx, order.ID, admin, "duplicate")
	require.NoError(t, err)

	_, err = env.svc.Approve(ctx, DecisionInput{ValidationID: validation.ID, Actor: admin})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	var row models.PaymentValidation
	require.NoError(t, env.db.First(&row, validation.ID).Error)
	require.Equal(t, enums.ValidationStatusPending, row.ValidationStatus)
}

func TestDecisionRollsBackWhenNotifierFails(t *testing.T) {
	env := newEnv(t)
	order := env.placeOrder(t)
	validation := env.submit(t, order)
	env.notifier.err = errors.New("inbox unavailable")

	_, err := env.svc.Approve(context.Background(), DecisionInput{ValidationID: validation.ID, Actor: admin})
	requireCode(t, err, pkgerrors.CodeDependency)

	var row models.PaymentValidation
	require.NoError(t, env.db.First(&row, validation.ID).Error)
	require.Equal(t, enums.ValidationStatusPending, row.ValidationStatus)
	require.Equal(t, enums.OrderStatusInProgress, env.order(t, order.ID).Status)
}

func TestDecisionRequiresAdmin(t *testing.T) {
	env := newEnv(t)
	order := env.placeOrder(t)
	validation := env.submit(t, order)

	customer := orders.Actor{UserID: 3, Role: enums.UserRoleCustomer}
	_, err := env.svc.Approve(context.Background(), DecisionInput{ValidationID: validation.ID, Actor: customer})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = env.svc.Approve(context.Background(), DecisionInput{ValidationID: 9999, Actor: admin})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	first := env.submit(t, env.placeOrder(t))
	env.submit(t, env.placeOrder(t))
	_, err := env.svc.Approve(ctx, DecisionInput{ValidationID: first.ID, Actor: admin})
	require.NoError(t, err)

	pending := enums.ValidationStatusPending
	list, err := env.svc.List(ctx, pagination.Params{Limit: 10}, ListFilters{Status: &pending})
	require.NoError(t, err)
	require.Len(t, list.Validations, 1)
	require.NotNil(t, list.Validations[0].Order)
	require.Equal(t, enums.OrderStatusInProgress, list.Validations[0].Order.Status)

	all, err := env.svc.List(ctx, pagination.Params{Limit: 1}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, all.Validations, 1)
	require.NotEmpty(t, all.NextCursor)

	_, err = env.svc.List(ctx, pagination.Params{Limit: 1, Cursor: "%%%"}, ListFilters{})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestRejectDoesNotFailPaymentOfPaidOrder(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	order := env.placeOrder(t)
	first := env.submit(t, order)
	_, err := env.svc.Approve(ctx, DecisionInput{ValidationID: first.ID, Actor: admin})
	require.NoError(t, err)

	// a second submission that slipped in before the approval committed
	stale := models.PaymentValidation{
		OrderID:          order.ID,
		AmountPaid:       decimal.RequireFromString("600"),
		PaymentProofPath: "orders/" + order.Reference.String() + "/payment_proof/late.png",
		ValidationStatus: enums.ValidationStatusPending,
	}
	require.NoError(t, env.db.Create(&stale).Error)

	note := "doublon"
	rejected, err := env.svc.Reject(ctx, DecisionInput{ValidationID: stale.ID, Notes: &note, Actor: admin})
	require.NoError(t, err)
	require.Equal(t, enums.ValidationStatusRejected, rejected.ValidationStatus)

	stored := env.order(t, order.ID)
	require.Equal(t, enums.OrderStatusPaid, stored.Status)
	require.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
}

func TestOnlyOnePendingValidationPerOrder(t *testing.T) {
	env := newEnv(t)
	order := env.placeOrder(t)
	env.submit(t, order)

	duplicate := models.PaymentValidation{
		OrderID:          order.ID,
		AmountPaid:       decimal.RequireFromString("600"),
		PaymentProofPath: "orders/" + order.Reference.String() + "/payment_proof/dup.png",
		ValidationStatus: enums.ValidationStatusPending,
	}
	require.Error(t, env.db.Create(&duplicate).Error)
}

// lostRaceRepo reads the row as pending but loses the guarded update, as when
// another administrator decides between the read and the write.
type lostRaceRepo struct {
	Repository
}

func (r *lostRaceRepo) WithTx(tx *gorm.DB) Repository {
	return &lostRaceRepo{Repository: r.Repository.WithTx(tx)}
}

func (r *lostRaceRepo) Decide(context.Context, int64, enums.ValidationStatus, int64, *string, time.Time) (bool, error) {
	return false, nil
}

type countingLifecycle struct {
	orderTransitioner
	calls int
}

func (l *countingLifecycle) Transition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, actor *outbox.ActorRef, reason string) error {
	l.calls++
	return l.orderTransitioner.Transition(ctx, tx, order, to, actor, reason)
}

func TestConcurrentDecisionLosesGuardedUpdate(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	order := env.placeOrder(t)
	validation := env.submit(t, order)

	lifecycle := &countingLifecycle{orderTransitioner: env.svc.lifecycle}
	env.svc.lifecycle = lifecycle
	env.svc.repo = &lostRaceRepo{Repository: env.svc.repo}

	_, err := env.svc.Approve(ctx, DecisionInput{ValidationID: validation.ID, Actor: admin})
	requireCode(t, err, pkgerrors.CodeAlreadyDecided)

	require.Zero(t, lifecycle.calls)
	require.Empty(t, env.notifier.decisions)
	require.Equal(t, enums.OrderStatusInProgress, env.order(t, order.ID).Status)
	require.Zero(t, env.metrics.decisions["approved"])
}
