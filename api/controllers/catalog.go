package controllers

import (
	"net/http"

	"github.com/angelmondragon/tapcards-backend/api/responses"
	"github.com/angelmondragon/tapcards-backend/api/validators"
	"github.com/angelmondragon/tapcards-backend/internal/catalog"
	"github.com/angelmondragon/tapcards-backend/internal/pricing"
	"github.com/angelmondragon/tapcards-backend/pkg/locale"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
)

// ListPacks returns the active catalog in the negotiated locale.
func ListPacks(svc catalog.Service, negotiator *locale.Negotiator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		packs, err := svc.ListPacks(r.Context(), negotiator.FromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"packs": packs})
	}
}

func GetPack(svc catalog.Service, negotiator *locale.Negotiator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseIDParam(r, "packId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pack, err := svc.GetPack(r.Context(), id, negotiator.FromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pack)
	}
}

// CreateQuote prices a prospective order without persisting anything.
func CreateQuote(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("pricing"))
			return
		}
		var body pricing.QuoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Quote(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
