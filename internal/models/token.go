package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token classes. Access tokens authorize requests directly; refresh tokens
// are accepted only by the rotation path.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the claim set carried by both token classes. Refresh tokens
// omit Role on purpose: rotation re-reads the current role from the
// credential store so a role change invalidates stale grants.
type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
