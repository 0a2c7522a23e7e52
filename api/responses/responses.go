package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/types"
)

// publicCodes keep the service-provided message; every other code answers with its generic text.
var publicCodes = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:         true,
	pkgerrors.CodeCatalogUnavailable: true,
	pkgerrors.CodeAlreadyDecided:     true,
	pkgerrors.CodeForbidden:          true,
	pkgerrors.CodeUnauthorized:       true,
	pkgerrors.CodeNotFound:           true,
	pkgerrors.CodeConflict:           true,
	pkgerrors.CodeStateConflict:      true,
	pkgerrors.CodeIdempotency:        true,
	pkgerrors.CodeRateLimit:          true,
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.NewSuccess(data))
}

// WriteError maps err onto the failure envelopes and logs it with its dump.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if publicCodes[typed.Code()] && typed.Message() != "" {
		msg = typed.Message()
	}

	logError(ctx, logg, err, meta.HTTPStatus)

	if typed.Code() == pkgerrors.CodeValidation {
		fields := typed.FieldErrors()
		if fields == nil {
			fields = pkgerrors.FieldErrors{}
			fields.Add("request", msg)
		}
		writeJSON(w, meta.HTTPStatus, types.ValidationEnvelope{
			Message: msg,
			Errors:  fields,
		})
		return
	}

	payload := types.ErrorEnvelope{
		Message: msg,
		Error:   string(typed.Code()),
	}
	if meta.DetailsAllowed {
		payload.Details = typed.Details()
	}
	writeJSON(w, meta.HTTPStatus, payload)
}

func logError(ctx context.Context, logg *logger.Logger, err error, status int) {
	if logg == nil {
		return
	}
	dump := pkgerrors.Dump(err)
	ctx = logg.WithFields(ctx, map[string]any{
		"status":        status,
		"error_code":    dump.Code,
		"error_chain":   dump.Chain,
		"error_fields":  dump.Fields,
		"pg_code":       dump.PGCode,
		"pg_constraint": dump.PGConstraint,
		"pg_table":      dump.PGTable,
		"pg_detail":     dump.PGDetail,
	})
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(logg.WithField(ctx, "error", dump.TopMessage), "request.rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
