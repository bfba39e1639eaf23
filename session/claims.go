package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrEmptyToken is returned by ParseClaims for an empty token.
	ErrEmptyToken = errors.New("session: empty token")
	// ErrOpaqueToken means the token is not a JWT. Opaque tokens are still
	// valid bearer credentials.
	ErrOpaqueToken = errors.New("session: token is not a JWT")
)

// Claims are the JWT claims issued by the Kelmah auth service.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Expired reports whether the token expired before now. Tokens without an
// expiry never expire.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}

// ParseClaims decodes the claims of a JWT without verifying its signature.
// The client cannot verify tokens; the result is for display and logging.
func ParseClaims(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrOpaqueToken
	}
	return claims, nil
}
