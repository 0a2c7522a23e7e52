package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tapcards-backend/api/middleware"
	"github.com/angelmondragon/tapcards-backend/api/responses"
	"github.com/angelmondragon/tapcards-backend/api/validators"
	"github.com/angelmondragon/tapcards-backend/internal/media"
	"github.com/angelmondragon/tapcards-backend/internal/orders"
	"github.com/angelmondragon/tapcards-backend/internal/payments"
	"github.com/angelmondragon/tapcards-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
)

// proofForm holds the text fields sent alongside a payment proof.
type proofForm struct {
	AmountPaid  *decimal.Decimal `form:"amount_paid"`
	ClientNotes *string          `form:"client_notes" validate:"omitempty,max=2000"`
}

// CreateOrder accepts the storefront multipart form with optional logo and brief files.
func CreateOrder(svc orders.Service, uploads config.UploadsConfig, logg *logger.Logger) http.HandlerFunc {
	maxBytes := uploads.ImageMaxBytes() + uploads.DocumentMaxBytes() + multipartSlack
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}

		form, err := validators.ParseMultipartForm(w, r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer form.Close()

		var input orders.CreateOrderInput
		if err := form.Bind(&input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var files openedFiles
		defer files.Close()
		if input.Logo, err = files.open(form, "logo", media.KindLogo); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.Brief, err = files.open(form, "brief", media.KindBrief); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.UserID = ownerID(r)

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrderByReference serves the order tracking page. The reference acts as the capability.
func GetOrderByReference(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}
		reference, err := validators.ParseReferenceParam(r, "reference")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetForCustomer(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListMyOrders pages through the signed-in customer's orders.
func ListMyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		if userID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListMine(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// SubmitPaymentProof attaches a customer's transfer proof to the order named by its reference.
func SubmitPaymentProof(svc payments.Service, uploads config.UploadsConfig, logg *logger.Logger) http.HandlerFunc {
	return proofHandler(svc, uploads, logg, func(r *http.Request, in *payments.SubmitProofInput) error {
		reference, err := validators.ParseReferenceParam(r, "reference")
		if err != nil {
			return err
		}
		in.Reference = reference
		return nil
	})
}

// AdminSubmitPaymentProof records a proof on the customer's behalf, addressing the order by id.
func AdminSubmitPaymentProof(svc payments.Service, uploads config.UploadsConfig, logg *logger.Logger) http.HandlerFunc {
	return proofHandler(svc, uploads, logg, func(r *http.Request, in *payments.SubmitProofInput) error {
		id, err := validators.ParseIDParam(r, "orderId")
		if err != nil {
			return err
		}
		in.OrderID = id
		return nil
	})
}

func proofHandler(svc payments.Service, uploads config.UploadsConfig, logg *logger.Logger, target func(*http.Request, *payments.SubmitProofInput) error) http.HandlerFunc {
	maxBytes := uploads.DocumentMaxBytes() + multipartSlack
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments"))
			return
		}

		input := payments.SubmitProofInput{Actor: actorFrom(r)}
		if err := target(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		form, err := validators.ParseMultipartForm(w, r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer form.Close()

		var body proofForm
		if err := form.Bind(&body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.AmountPaid = body.AmountPaid
		input.ClientNotes = body.ClientNotes

		var files openedFiles
		defer files.Close()
		if input.Proof, err = files.open(form, "payment_proof", media.KindPaymentProof); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		validation, err := svc.SubmitProof(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, validation)
	}
}
