package tokenstore

import (
	"context"
	"fmt"

	"github.com/kelmah/sessionkit/encryption"
)

// Sealed encrypts tokens before they reach the inner store.
type Sealed struct {
	inner Store
	enc   encryption.Encryptor
}

// NewSealed wraps inner with enc.
func NewSealed(inner Store, enc encryption.Encryptor) *Sealed {
	return &Sealed{inner: inner, enc: enc}
}

func (s *Sealed) Get(ctx context.Context) (string, bool, error) {
	sealed, ok, err := s.inner.Get(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	token, err := s.enc.Decrypt(sealed)
	if err != nil {
		return "", false, fmt.Errorf("tokenstore: open sealed token: %w", err)
	}
	return token, true, nil
}

func (s *Sealed) Set(ctx context.Context, token string) error {
	sealed, err := s.enc.Encrypt(token)
	if err != nil {
		return fmt.Errorf("tokenstore: seal token: %w", err)
	}
	return s.inner.Set(ctx, sealed)
}

func (s *Sealed) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

// Close closes the inner store.
func (s *Sealed) Close() error {
	return Close(s.inner)
}

// Unwrap returns the inner store.
func (s *Sealed) Unwrap() Store {
	return s.inner
}
