package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Validation(pkgerrors.FieldErrors{key: {"must be numeric"}})
	}
	if value < min || value > max {
		return 0, pkgerrors.Validation(pkgerrors.FieldErrors{key: {fmt.Sprintf("must be between %d and %d", min, max)}})
	}
	return value, nil
}

// ParseQueryBool returns false when the parameter is absent.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.Validation(pkgerrors.FieldErrors{key: {"must be true or false"}})
	}
	return value, nil
}

// ParseIDParam reads a positive integer route parameter.
func ParseIDParam(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
	}
	return id, nil
}

// ParseReferenceParam reads a uuid route parameter. Malformed values read as not found.
func ParseReferenceParam(r *http.Request, name string) (uuid.UUID, error) {
	ref, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return ref, nil
}
