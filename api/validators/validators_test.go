package validators

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type proofForm struct {
	AmountPaid  *decimal.Decimal `form:"amount_paid" validate:"omitempty"`
	Quantity    int              `form:"quantity" validate:"required,gte=1"`
	ClientNotes *string          `form:"client_notes" validate:"omitempty,max=5"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.ma","password":"x","admin":true}`))

	err := DecodeJSONBody(req, &loginBody{})

	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyReportsEveryField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))

	err := DecodeJSONBody(req, &loginBody{})

	fields := pkgerrors.As(err).FieldErrors()
	assert.Equal(t, []string{"email", "password"}, fields.Fields())
}

func TestDecodeJSONBodyEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))

	err := DecodeJSONBody(req, &loginBody{})

	assert.True(t, pkgerrors.As(err).FieldErrors().Has("request"))
}

func multipartRequest(t *testing.T, values map[string]string, file string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != "" {
		part, err := mw.CreateFormFile(file, "proof.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMultipartBindConvertsFields(t *testing.T) {
	req := multipartRequest(t, map[string]string{"amount_paid": "149.50", "quantity": "3", "client_notes": "ok"}, "payment_proof")
	form, err := ParseMultipartForm(httptest.NewRecorder(), req, 1<<20)
	require.NoError(t, err)
	defer form.Close()

	var dest proofForm
	require.NoError(t, form.Bind(&dest))

	require.NotNil(t, dest.AmountPaid)
	assert.True(t, dest.AmountPaid.Equal(decimal.RequireFromString("149.5")))
	assert.Equal(t, 3, dest.Quantity)
	assert.Equal(t, "ok", *dest.ClientNotes)
	assert.NotNil(t, form.File("payment_proof"))
	assert.Nil(t, form.File("logo"))
}

func TestMultipartBindCollectsConversionAndRuleErrors(t *testing.T) {
	req := multipartRequest(t, map[string]string{"amount_paid": "lots", "client_notes": "far too long"}, "")
	form, err := ParseMultipartForm(httptest.NewRecorder(), req, 1<<20)
	require.NoError(t, err)
	defer form.Close()

	err = form.Bind(&proofForm{})

	fields := pkgerrors.As(err).FieldErrors()
	assert.Equal(t, []string{"must be a number"}, fields["amount_paid"])
	assert.Equal(t, []string{"is required"}, fields["quantity"])
	assert.Equal(t, []string{"must be at most 5"}, fields["client_notes"])
}

func TestMultipartBindDropsBlankValuesAndFlagsBadIntegers(t *testing.T) {
	req := multipartRequest(t, map[string]string{"quantity": "three", "client_notes": "   ", "amount_paid": " 20 "}, "")
	form, err := ParseMultipartForm(httptest.NewRecorder(), req, 1<<20)
	require.NoError(t, err)
	defer form.Close()

	var dest proofForm
	err = form.Bind(&dest)

	fields := pkgerrors.As(err).FieldErrors()
	assert.Equal(t, []string{"quantity"}, fields.Fields())
	assert.Equal(t, []string{"is invalid"}, fields["quantity"])
	assert.Nil(t, dest.ClientNotes)
	require.NotNil(t, dest.AmountPaid)
	assert.True(t, dest.AmountPaid.Equal(decimal.NewFromInt(20)))
}

func TestParseMultipartFormRequiresMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	_, err := ParseMultipartForm(httptest.NewRecorder(), req, 1<<20)

	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseMultipartFormEnforcesCeiling(t *testing.T) {
	req := multipartRequest(t, map[string]string{"notes": strings.Repeat("x", 4096)}, "")

	_, err := ParseMultipartForm(httptest.NewRecorder(), req, 1024)

	assert.True(t, pkgerrors.As(err).FieldErrors().Has("request"))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&bad=x", nil)

	value, err := ParseQueryInt(req, "missing", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, value)

	_, err = ParseQueryInt(req, "limit", 25, 1, 100)
	assert.True(t, pkgerrors.As(err).FieldErrors().Has("limit"))

	_, err = ParseQueryInt(req, "bad", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseIDParam(t *testing.T) {
	route := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("orderId", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := ParseIDParam(route("42"), "orderId")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParseIDParam(route("-1"), "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = ParseReferenceParam(route("not-a-uuid"), "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Fès", SanitizeString("  Fès Medina ", 3))
	assert.Nil(t, OptionalString("   ", 10))
	assert.Equal(t, "Rabat", *OptionalString(" Rabat ", 10))
}
