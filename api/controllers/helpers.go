package controllers

import (
	"net/http"

	"github.com/angelmondragon/tapcards-backend/api/middleware"
	"github.com/angelmondragon/tapcards-backend/api/validators"
	"github.com/angelmondragon/tapcards-backend/internal/orders"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/pagination"
)

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

// pageParams reads ?limit= and ?cursor=.
func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}, nil
}

// actorFrom builds the order actor for the caller. Anonymous callers act as customers.
func actorFrom(r *http.Request) orders.Actor {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return orders.Actor{Role: enums.UserRoleCustomer}
	}
	return orders.Actor{UserID: principal.UserID, Role: principal.Role}
}

func ownerID(r *http.Request) *int64 {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	id := principal.UserID
	return &id
}
