package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestParseClaims(t *testing.T) {
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	token := signedToken(t, Claims{
		Email: "ama@kelmah.test",
		Role:  "worker",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "ama@kelmah.test" || claims.Role != "worker" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Time.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt.Time, exp)
	}
}

func TestParseClaims_ExpiredTokenStillParses(t *testing.T) {
	token := signedToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-2",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("expired tokens must still parse: %v", err)
	}
	if !claims.Expired(time.Now()) {
		t.Error("expected Expired to be true")
	}
}

func TestParseClaims_Errors(t *testing.T) {
	if _, err := ParseClaims(""); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("empty token: got %v", err)
	}
	if _, err := ParseClaims("opaque-session-token"); !errors.Is(err, ErrOpaqueToken) {
		t.Errorf("opaque token: got %v", err)
	}
}

func TestClaimsExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		claims Claims
		want   bool
	}{
		{"no expiry", Claims{}, false},
		{"future", Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))}}, false},
		{"past", Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.claims.Expired(now); got != tc.want {
				t.Errorf("Expired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTokenFromPayload(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"flat", `{"token":"a"}`, "a", false},
		{"nested", `{"data":{"token":"b"}}`, "b", false},
		{"nested wins", `{"token":"a","data":{"token":"b"}}`, "b", false},
		{"empty nested falls back", `{"token":"a","data":{"token":""}}`, "a", false},
		{"trimmed", `{"token":"  c  "}`, "c", false},
		{"missing", `{"success":true}`, "", true},
		{"not json", `nope`, "", true},
		{"empty", ``, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tokenFromPayload([]byte(tc.body))
			if (err != nil) != tc.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("token = %q, want %q", got, tc.want)
			}
		})
	}
}
