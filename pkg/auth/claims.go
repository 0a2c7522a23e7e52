package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/tapcards-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID int64
	Email  string
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims is the typed JWT issued to customers and administrators.
type AccessTokenClaims struct {
	UserID int64          `json:"uid"`
	Email  string         `json:"email"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && c.Role == enums.UserRoleAdmin
}
