package encryption

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// NewChaCha20 creates a ChaCha20-Poly1305 Encryptor. aad may be nil.
func NewChaCha20(passphrase string, aad []byte) (Encryptor, error) {
	aead, err := chacha20poly1305.New(deriveKey(passphrase))
	if err != nil {
		return nil, fmt.Errorf("create chacha20: %w", err)
	}
	return &sealer{aead: aead, aad: aad}, nil
}
