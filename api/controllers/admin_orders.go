package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/tapcards-backend/api/responses"
	"github.com/angelmondragon/tapcards-backend/api/validators"
	"github.com/angelmondragon/tapcards-backend/internal/orders"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
)

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// AdminListOrders serves the back-office order table.
func AdminListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
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

func AdminGetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}
		id, err := validators.ParseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AdminShipOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderMove(svc, logg, func(r *http.Request, id int64) (*orders.OrderView, error) {
		return svc.MarkShipped(r.Context(), id, actorFrom(r))
	})
}

func AdminDeliverOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderMove(svc, logg, func(r *http.Request, id int64) (*orders.OrderView, error) {
		return svc.MarkDelivered(r.Context(), id, actorFrom(r))
	})
}

// AdminCancelOrder accepts an optional JSON body carrying the reason.
func AdminCancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderMove(svc, logg, func(r *http.Request, id int64) (*orders.OrderView, error) {
		var body cancelOrderRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				return nil, err
			}
		}
		return svc.Cancel(r.Context(), id, actorFrom(r), validators.SanitizeString(body.Reason, 500))
	})
}

func AdminDeleteOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}
		id, err := validators.ParseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id, actorFrom(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func orderMove(svc orders.Service, logg *logger.Logger, move func(*http.Request, int64) (*orders.OrderView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}
		id, err := validators.ParseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := move(r, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// parseOrderFilters reads status, payment_status, channel, pack_id, created_from, created_to and q.
func parseOrderFilters(r *http.Request) (orders.ListFilters, error) {
	query := r.URL.Query()
	fields := pkgerrors.FieldErrors{}
	var filters orders.ListFilters

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		if status, err := enums.ParseOrderStatus(raw); err != nil {
			fields.Add("status", "is invalid")
		} else {
			filters.Status = &status
		}
	}
	if raw := strings.TrimSpace(query.Get("payment_status")); raw != "" {
		if status, err := enums.ParsePaymentStatus(raw); err != nil {
			fields.Add("payment_status", "is invalid")
		} else {
			filters.PaymentStatus = &status
		}
	}
	if raw := strings.TrimSpace(query.Get("channel")); raw != "" {
		if channel, err := enums.ParseOrderChannel(raw); err != nil {
			fields.Add("channel", "is invalid")
		} else {
			filters.Channel = &channel
		}
	}
	if raw := strings.TrimSpace(query.Get("pack_id")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err != nil || id <= 0 {
			fields.Add("pack_id", "must be a positive integer")
		} else {
			filters.PackID = &id
		}
	}
	for _, bound := range []struct {
		key    string
		target **time.Time
	}{
		{"created_from", &filters.CreatedFrom},
		{"created_to", &filters.CreatedTo},
	} {
		raw := strings.TrimSpace(query.Get(bound.key))
		if raw == "" {
			continue
		}
		at, err := parseDateBound(raw)
		if err != nil {
			fields.Add(bound.key, "must be a date (YYYY-MM-DD) or RFC 3339 time")
			continue
		}
		*bound.target = &at
	}
	filters.Query = validators.SanitizeString(query.Get("q"), 120)

	if !fields.Empty() {
		return orders.ListFilters{}, pkgerrors.Validation(fields)
	}
	return filters, nil
}

func parseDateBound(raw string) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339, raw); err == nil {
		return at, nil
	}
	return time.Parse(time.DateOnly, raw)
}
