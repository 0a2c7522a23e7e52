package middleware

import (
	"context"

	"github.com/angelmondragon/tapcards-backend/pkg/enums"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    int64
	Email     string
	Role      enums.UserRole
	SessionID string
}

func (p Principal) IsAdmin() bool {
	return p.Role == enums.UserRoleAdmin
}

// PrincipalFromContext returns the caller, if the request was authenticated.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	return p, ok && p.UserID > 0
}

func UserIDFromContext(ctx context.Context) int64 {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}

// WithPrincipal stores p on ctx for downstream handlers.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}
