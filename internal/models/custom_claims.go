package models

import "github.com/golang-jwt/jwt/v5"

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// CustomClaims represents the custom claims in our JWT tokens.
// The registered subject carries the user's email.
type CustomClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
}

func (c *CustomClaims) IsAccessToken() bool {
	return c.TokenType == TokenTypeAccess
}
