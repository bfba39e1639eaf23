package mockapi

import (
	"time"

	"github.com/kelmah/sessionkit/validation"
)

// Roles understood by the jobs endpoints.
const (
	RoleWorker = "worker"
	RoleHirer  = "hirer"
)

// DefaultAddr matches the development API URL of the session client.
const DefaultAddr = "127.0.0.1:5001"

// User is an account the mock accepts on login.
type User struct {
	ID       string `json:"id" mapstructure:"id"`
	Name     string `json:"name" mapstructure:"name"`
	Email    string `json:"email" mapstructure:"email" validate:"required,email"`
	Password string `json:"-" mapstructure:"password" validate:"required"`
	Role     string `json:"role" mapstructure:"role" validate:"oneof=worker hirer"`
}

// Config configures the mock API.
type Config struct {
	// Addr is the listen address used by Start.
	Addr string `mapstructure:"addr" validate:"required"`
	// Secret signs issued tokens.
	Secret string `mapstructure:"secret" validate:"required"`
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	Users    []User        `mapstructure:"users" validate:"dive"`
}

// DefaultUsers are the accounts seeded when Config.Users is empty.
func DefaultUsers() []User {
	return []User{
		{ID: "user-worker-1", Name: "Kwame Mensah", Email: "worker@kelmah.test", Password: "password", Role: RoleWorker},
		{ID: "user-hirer-1", Name: "Ama Owusu", Email: "hirer@kelmah.test", Password: "password", Role: RoleHirer},
	}
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Secret == "" {
		c.Secret = "kelmah-mock-secret"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 15 * time.Minute
	}
	if len(c.Users) == 0 {
		c.Users = DefaultUsers()
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
