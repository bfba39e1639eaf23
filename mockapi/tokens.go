package mockapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrTokenRevoked is returned for a token issued before the last ExpireAll.
	ErrTokenRevoked = errors.New("mockapi: token revoked")
	errMissingToken = errors.New("mockapi: missing bearer token")
)

// tokenClaims is the payload of issued tokens. Generation ties a token to
// the revocation epoch it was issued in.
type tokenClaims struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	Generation int64  `json:"gen"`
	jwt.RegisteredClaims
}

// issuer signs and verifies HS256 tokens against a clock.
type issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func (i *issuer) issue(u User, generation int64) (string, error) {
	now := i.clock.Now()
	claims := tokenClaims{
		Email:      u.Email,
		Role:       u.Role,
		Generation: generation,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    "kelmah-mockapi",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("mockapi: sign token: %w", err)
	}
	return signed, nil
}

// verify checks signature and expiry.
func (i *issuer) verify(token string) (*tokenClaims, error) {
	return i.parse(token, jwt.WithTimeFunc(i.clock.Now))
}

// verifySignature checks the signature only. Refresh accepts expired tokens.
func (i *issuer) verifySignature(token string) (*tokenClaims, error) {
	return i.parse(token, jwt.WithoutClaimsValidation())
}

func (i *issuer) parse(token string, opts ...jwt.ParserOption) (*tokenClaims, error) {
	if token == "" {
		return nil, errMissingToken
	}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
