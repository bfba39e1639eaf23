package encryption

import (
	"errors"
	"fmt"
	"strings"
)

// Encryptor seals and opens strings.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Algorithm represents supported encryption algorithms.
type Algorithm string

const (
	// AlgorithmAESGCM is AES-256-GCM (default).
	AlgorithmAESGCM Algorithm = "aes-256-gcm"

	// AlgorithmChaCha20 is ChaCha20-Poly1305, faster on CPUs without AES-NI.
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

var (
	// ErrEmptyPassphrase is returned when no passphrase is configured.
	ErrEmptyPassphrase = errors.New("encryption: passphrase is empty")
	// ErrInvalidCiphertext is returned for input that cannot be opened.
	ErrInvalidCiphertext = errors.New("encryption: invalid ciphertext")
)

// ParseAlgorithm maps a config value to an Algorithm. Empty selects AES-GCM.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlgorithmAESGCM, "aes", "aes-gcm":
		return AlgorithmAESGCM, nil
	case AlgorithmChaCha20, "chacha20":
		return AlgorithmChaCha20, nil
	default:
		return "", fmt.Errorf("encryption: unknown algorithm %q", s)
	}
}

// Option configures New.
type Option func(*options)

type options struct {
	algorithm Algorithm
	aad       []byte
}

// WithAlgorithm selects the encryption algorithm (default: AES-256-GCM).
func WithAlgorithm(alg Algorithm) Option {
	return func(o *options) { o.algorithm = alg }
}

// WithAssociatedData binds ciphertexts to a context string, such as the
// token slot name, so a sealed value cannot be replayed into another slot.
func WithAssociatedData(aad string) Option {
	return func(o *options) { o.aad = []byte(aad) }
}

// New creates an Encryptor from a passphrase.
func New(passphrase string, opts ...Option) (Encryptor, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	o := &options{algorithm: AlgorithmAESGCM}
	for _, opt := range opts {
		opt(o)
	}

	switch o.algorithm {
	case AlgorithmChaCha20:
		return NewChaCha20(passphrase, o.aad)
	case AlgorithmAESGCM:
		return NewAESGCM(passphrase, o.aad)
	default:
		return nil, fmt.Errorf("encryption: unknown algorithm %q", o.algorithm)
	}
}
