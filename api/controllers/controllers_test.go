package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/api/middleware"
	"github.com/angelmondragon/tapcards-backend/internal/media"
	"github.com/angelmondragon/tapcards-backend/internal/notifications"
	"github.com/angelmondragon/tapcards-backend/internal/orders"
	"github.com/angelmondragon/tapcards-backend/internal/payments"
	"github.com/angelmondragon/tapcards-backend/pkg/config"
	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox"
	"github.com/angelmondragon/tapcards-backend/pkg/pagination"
)

var testUploads = config.UploadsConfig{ImageMaxMB: 1, DocumentMaxMB: 1}

type stubOrders struct {
	createFn   func(ctx context.Context, in orders.CreateOrderInput) (*orders.OrderView, error)
	customerFn func(ctx context.Context, ref uuid.UUID) (*orders.OrderView, error)
	listFn     func(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error)
	cancelFn   func(ctx context.Context, id int64, actor orders.Actor, reason string) (*orders.OrderView, error)
}

func (s stubOrders) Create(ctx context.Context, in orders.CreateOrderInput) (*orders.OrderView, error) {
	return s.createFn(ctx, in)
}

func (s stubOrders) Get(context.Context, int64) (*orders.OrderView, error) {
	return &orders.OrderView{}, nil
}

func (s stubOrders) GetForCustomer(ctx context.Context, ref uuid.UUID) (*orders.OrderView, error) {
	return s.customerFn(ctx, ref)
}

func (s stubOrders) List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return s.listFn(ctx, params, filters)
}

func (s stubOrders) ListMine(context.Context, int64, pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s stubOrders) MarkShipped(context.Context, int64, orders.Actor) (*orders.OrderView, error) {
	return &orders.OrderView{Status: enums.OrderStatusShipped}, nil
}

func (s stubOrders) MarkDelivered(context.Context, int64, orders.Actor) (*orders.OrderView, error) {
	return &orders.OrderView{Status: enums.OrderStatusDelivered}, nil
}

func (s stubOrders) Cancel(ctx context.Context, id int64, actor orders.Actor, reason string) (*orders.OrderView, error) {
	return s.cancelFn(ctx, id, actor, reason)
}

func (s stubOrders) Delete(context.Context, int64, orders.Actor) error {
	return nil
}

func (s stubOrders) Transition(context.Context, *gorm.DB, *models.Order, enums.OrderStatus, *outbox.ActorRef, string) error {
	return nil
}

type stubPayments struct {
	submitFn func(ctx context.Context, in payments.SubmitProofInput) (*payments.ValidationView, error)
	decideFn func(ctx context.Context, in payments.DecisionInput, approve bool) (*payments.ValidationView, error)
}

func (s stubPayments) SubmitProof(ctx context.Context, in payments.SubmitProofInput) (*payments.ValidationView, error) {
	return s.submitFn(ctx, in)
}

func (s stubPayments) Approve(ctx context.Context, in payments.DecisionInput) (*payments.ValidationView, error) {
	return s.decideFn(ctx, in, true)
}

func (s stubPayments) Reject(ctx context.Context, in payments.DecisionInput) (*payments.ValidationView, error) {
	return s.decideFn(ctx, in, false)
}

func (s stubPayments) Get(context.Context, int64) (*payments.ValidationView, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment validation not found")
}

func (s stubPayments) List(context.Context, pagination.Params, payments.ListFilters) (*payments.ValidationList, error) {
	return &payments.ValidationList{}, nil
}

type stubNotifications struct {
	listFn func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
}

func (s stubNotifications) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return s.listFn(ctx, params)
}

func (s stubNotifications) MarkRead(context.Context, notifications.Inbox, int64) error {
	return nil
}

func (s stubNotifications) MarkAllRead(context.Context, notifications.Inbox) (int64, error) {
	return 4, nil
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
	Data    json.RawMessage     `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func asAdmin(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), middleware.Principal{
		UserID: 1, Email: "ops@tapcards.ma", Role: enums.UserRoleAdmin, SessionID: "s-1",
	}))
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, content := range files {
		part, err := mw.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestCreateOrderBindsFormAndFiles(t *testing.T) {
	var got orders.CreateOrderInput
	var logo []byte
	svc := stubOrders{createFn: func(_ context.Context, in orders.CreateOrderInput) (*orders.OrderView, error) {
		got = in
		if in.Logo != nil {
			logo, _ = io.ReadAll(in.Logo.Body)
		}
		return &orders.OrderView{ID: 9, Status: enums.OrderStatusPending}, nil
	}}

	body, contentType := multipartBody(t, map[string]string{
		"pack_id":      "2",
		"template_id":  "5",
		"client_name":  "Amal Idrissi",
		"client_email": "amal@example.ma",
		"phone":        "+212600000000",
		"city":         "Rabat",
		"orientation":  "horizontal",
		"card_model":   "black",
		"quantity":     "3",
		"channel":      "form",
	}, map[string][]byte{"logo": pngBytes})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	CreateOrder(svc, testUploads, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(2), got.PackID)
	require.NotNil(t, got.TemplateID)
	assert.Equal(t, int64(5), *got.TemplateID)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, "black", got.CardModel)
	require.NotNil(t, got.Logo)
	assert.Equal(t, media.KindLogo, got.Logo.Kind)
	assert.Equal(t, "logo", got.Logo.Field)
	assert.Equal(t, pngBytes, logo)
	assert.Nil(t, got.Brief)
	assert.Nil(t, got.UserID)
}

func TestCreateOrderReportsAllFieldErrors(t *testing.T) {
	svc := stubOrders{createFn: func(context.Context, orders.CreateOrderInput) (*orders.OrderView, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	body, contentType := multipartBody(t, map[string]string{"quantity": "many", "client_email": "nope"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	CreateOrder(svc, testUploads, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, []string{"must be an integer"}, env.Errors["quantity"])
	assert.Equal(t, []string{"must be a valid email"}, env.Errors["client_email"])
	assert.Contains(t, env.Errors, "pack_id")
	assert.Contains(t, env.Errors, "channel")
}

func TestGetOrderByReferenceTreatsMalformedAsNotFound(t *testing.T) {
	svc := stubOrders{customerFn: func(context.Context, uuid.UUID) (*orders.OrderView, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "reference", "12")

	rec := httptest.NewRecorder()
	GetOrderByReference(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec).Error)
}

func TestSubmitPaymentProofUsesReferenceAndAmount(t *testing.T) {
	ref := uuid.New()
	var got payments.SubmitProofInput
	svc := stubPayments{submitFn: func(_ context.Context, in payments.SubmitProofInput) (*payments.ValidationView, error) {
		got = in
		return &payments.ValidationView{ID: 4, ValidationStatus: enums.ValidationStatusPending}, nil
	}}
	body, contentType := multipartBody(t, map[string]string{"amount_paid": "250.00", "client_notes": "virement CIH"}, map[string][]byte{"payment_proof": pngBytes})
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	req = withParam(req, "reference", ref.String())

	rec := httptest.NewRecorder()
	SubmitPaymentProof(svc, testUploads, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, ref, got.Reference)
	assert.Zero(t, got.OrderID)
	require.NotNil(t, got.AmountPaid)
	assert.True(t, got.AmountPaid.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "virement CIH", *got.ClientNotes)
	require.NotNil(t, got.Proof)
	assert.Equal(t, media.KindPaymentProof, got.Proof.Kind)
	assert.Equal(t, enums.UserRoleCustomer, got.Actor.Role)
}

func TestAdminSubmitPaymentProofAddressesOrderByID(t *testing.T) {
	var got payments.SubmitProofInput
	svc := stubPayments{submitFn: func(_ context.Context, in payments.SubmitProofInput) (*payments.ValidationView, error) {
		got = in
		return &payments.ValidationView{ID: 4}, nil
	}}
	body, contentType := multipartBody(t, nil, map[string][]byte{"payment_proof": pngBytes})
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	req = asAdmin(withParam(req, "orderId", "31"))

	rec := httptest.NewRecorder()
	AdminSubmitPaymentProof(svc, testUploads, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(31), got.OrderID)
	assert.Nil(t, got.AmountPaid)
	assert.Equal(t, orders.Actor{UserID: 1, Role: enums.UserRoleAdmin}, got.Actor)
}

func TestDecisionsPassActorAndNotes(t *testing.T) {
	var approved []bool
	var got payments.DecisionInput
	svc := stubPayments{decideFn: func(_ context.Context, in payments.DecisionInput, approve bool) (*payments.ValidationView, error) {
		approved = append(approved, approve)
		got = in
		return &payments.ValidationView{ID: in.ValidationID}, nil
	}}

	req := asAdmin(withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"admin_notes":"montant partiel"}`)), "validationId", "12"))
	rec := httptest.NewRecorder()
	AdminRejectPayment(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(12), got.ValidationID)
	assert.Equal(t, "montant partiel", *got.Notes)
	assert.Equal(t, int64(1), got.Actor.UserID)

	req = asAdmin(withParam(httptest.NewRequest(http.MethodPost, "/", nil), "validationId", "12"))
	rec = httptest.NewRecorder()
	AdminApprovePayment(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, got.Notes)

	assert.Equal(t, []bool{false, true}, approved)
}

func TestDecisionSurfacesAlreadyDecided(t *testing.T) {
	svc := stubPayments{decideFn: func(context.Context, payments.DecisionInput, bool) (*payments.ValidationView, error) {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyDecided, "payment validation already decided")
	}}
	req := asAdmin(withParam(httptest.NewRequest(http.MethodPost, "/", nil), "validationId", "12"))

	rec := httptest.NewRecorder()
	AdminApprovePayment(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "payment validation already decided", env.Message)
}

func TestAdminListOrdersParsesFilters(t *testing.T) {
	var gotFilters orders.ListFilters
	var gotParams pagination.Params
	svc := stubOrders{listFn: func(_ context.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
		gotParams, gotFilters = params, filters
		return &orders.OrderList{}, nil
	}}
	req := httptest.NewRequest(http.MethodGet, "/?status=in_progress&channel=whatsapp&created_from=2026-01-01&q=%20Amal%20&limit=5", nil)

	rec := httptest.NewRecorder()
	AdminListOrders(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, gotParams.Limit)
	require.NotNil(t, gotFilters.Status)
	assert.Equal(t, enums.OrderStatusInProgress, *gotFilters.Status)
	require.NotNil(t, gotFilters.Channel)
	assert.Equal(t, enums.ChannelWhatsApp, *gotFilters.Channel)
	require.NotNil(t, gotFilters.CreatedFrom)
	assert.Equal(t, 2026, gotFilters.CreatedFrom.Year())
	assert.Equal(t, "Amal", gotFilters.Query)
}

func TestAdminListOrdersRejectsUnknownFilters(t *testing.T) {
	svc := stubOrders{listFn: func(context.Context, pagination.Params, orders.ListFilters) (*orders.OrderList, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	req := httptest.NewRequest(http.MethodGet, "/?status=lost&payment_status=maybe", nil)

	rec := httptest.NewRecorder()
	AdminListOrders(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	assert.Contains(t, env.Errors, "status")
	assert.Contains(t, env.Errors, "payment_status")
}

func TestAdminCancelOrderReadsReason(t *testing.T) {
	var reason string
	svc := stubOrders{cancelFn: func(_ context.Context, _ int64, _ orders.Actor, r string) (*orders.OrderView, error) {
		reason = r
		return &orders.OrderView{Status: enums.OrderStatusCancelled}, nil
	}}
	req := asAdmin(withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"  doublon  "}`)), "orderId", "3"))

	rec := httptest.NewRecorder()
	AdminCancelOrder(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "doublon", reason)
}

func TestCustomerNotificationsUseCallerEmail(t *testing.T) {
	var got notifications.ListParams
	svc := stubNotifications{listFn: func(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
		got = params
		return &notifications.ListResult{}, nil
	}}
	req := httptest.NewRequest(http.MethodGet, "/?unread_only=true", nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), middleware.Principal{UserID: 8, Email: "Amal@Example.ma", Role: enums.UserRoleCustomer}))

	rec := httptest.NewRecorder()
	ListNotifications(svc, CustomerInbox, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notifications.CustomerInbox("amal@example.ma"), got.Inbox)
	assert.True(t, got.UnreadOnly)
	assert.Equal(t, pagination.DefaultLimit, got.Limit)

	rec = httptest.NewRecorder()
	ListNotifications(svc, CustomerInbox, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMarkAllNotificationsReadReportsCount(t *testing.T) {
	rec := httptest.NewRecorder()
	MarkAllNotificationsRead(stubNotifications{}, AdminInbox, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":4}`, string(decode(t, rec).Data))
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReadyFailsWhenDependencyDown(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"database": stubPinger{}, "redis": stubPinger{err: errors.New("dial tcp")}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"database": stubPinger{}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Tapcards-Env"))
}

func TestHandlersReportMissingService(t *testing.T) {
	rec := httptest.NewRecorder()
	ListPacks(nil, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
