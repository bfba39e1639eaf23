package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelmah/sessionkit/encryption"
	"github.com/kelmah/sessionkit/validation"
)

// Store is a single-slot token store.
type Store interface {
	// Get returns the stored token. ok is false when the slot is empty.
	Get(ctx context.Context) (token string, ok bool, err error)
	// Set replaces the stored token.
	Set(ctx context.Context, token string) error
	// Clear empties the slot. Clearing an empty slot is not an error.
	Clear(ctx context.Context) error
}

// Kind selects a Store backend.
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindRedis  Kind = "redis"
)

const (
	defaultRedisKey = "kelmah:auth:token"
	defaultFileName = "token"
)

// Config selects and configures a Store.
type Config struct {
	Kind Kind `yaml:"kind" mapstructure:"kind" validate:"oneof=memory file redis"`

	// Path is the token file for KindFile.
	Path string `yaml:"path" mapstructure:"path" validate:"required_if=Kind file"`

	// Passphrase enables encryption at rest when set.
	Passphrase string `yaml:"passphrase" mapstructure:"passphrase"`
	// Algorithm is aes-256-gcm (default) or chacha20-poly1305.
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm" validate:"omitempty,oneof=aes-256-gcm chacha20-poly1305 aes chacha20"`

	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Kind == "" {
		c.Kind = KindFile
	}
	if c.Kind == KindFile && c.Path == "" {
		c.Path = DefaultPath()
	}
	if c.Kind == KindRedis {
		c.Redis.ApplyDefaults()
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.Kind == KindRedis {
		return c.Redis.Validate()
	}
	return nil
}

// DefaultPath returns the per-user token file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "kelmah", defaultFileName)
}

// New builds the Store described by cfg, sealed when a passphrase is set.
// The caller should Close the result when it implements io.Closer.
func New(cfg Config) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tokenstore config: %w", err)
	}

	var (
		store Store
		err   error
	)
	switch cfg.Kind {
	case KindMemory:
		store = NewMemory()
	case KindFile:
		store, err = NewFile(cfg.Path)
	case KindRedis:
		store, err = NewRedis(cfg.Redis)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Passphrase == "" {
		return store, nil
	}
	alg, err := encryption.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	enc, err := encryption.New(cfg.Passphrase,
		encryption.WithAlgorithm(alg),
		encryption.WithAssociatedData("kelmah:token"),
	)
	if err != nil {
		return nil, err
	}
	return NewSealed(store, enc), nil
}

// Close releases backend resources if the store holds any.
func Close(s Store) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
