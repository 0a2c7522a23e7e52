package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/tapcards-backend/api/responses"
	"github.com/angelmondragon/tapcards-backend/api/validators"
	"github.com/angelmondragon/tapcards-backend/internal/payments"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
)

type decisionRequest struct {
	AdminNotes *string `json:"admin_notes" validate:"omitempty,max=2000"`
}

// AdminListPaymentValidations serves the review queue, filterable by status and order_id.
func AdminListPaymentValidations(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters payments.ListFilters
		fields := pkgerrors.FieldErrors{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			if status, err := enums.ParseValidationStatus(raw); err != nil {
				fields.Add("status", "is invalid")
			} else {
				filters.Status = &status
			}
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("order_id")); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err != nil || id <= 0 {
				fields.Add("order_id", "must be a positive integer")
			} else {
				filters.OrderID = &id
			}
		}
		if !fields.Empty() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation(fields))
			return
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminGetPaymentValidation(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments"))
			return
		}
		id, err := validators.ParseIDParam(r, "validationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		validation, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, validation)
	}
}

func AdminApprovePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(svc, logg, true)
}

func AdminRejectPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(svc, logg, false)
}

func decide(svc payments.Service, logg *logger.Logger, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments"))
			return
		}
		id, err := validators.ParseIDParam(r, "validationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body decisionRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		run := svc.Reject
		if approve {
			run = svc.Approve
		}
		validation, err := run(r.Context(), payments.DecisionInput{
			ValidationID: id,
			Notes:        body.AdminNotes,
			Actor:        actorFrom(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, validation)
	}
}
