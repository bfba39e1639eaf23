package session

import (
	"strings"

	"github.com/kelmah/sessionkit/validation"
)

// Defaults for Config.
const (
	DefaultHealthPath  = "/api/health"
	DefaultRefreshPath = "/api/auth/refresh"
	DefaultLoginReason = "session_expired"
)

// Config controls the session client.
type Config struct {
	// HealthPath is matched as a substring of the request path.
	HealthPath  string `yaml:"health_path" mapstructure:"health_path" validate:"required"`
	RefreshPath string `yaml:"refresh_path" mapstructure:"refresh_path" validate:"required"`
	// LoginReason is passed to Navigator.GoToLogin.
	LoginReason string `yaml:"login_reason" mapstructure:"login_reason"`
	// CoalesceRefresh shares one in-flight refresh among concurrent 401s
	// instead of refreshing once per failing request.
	CoalesceRefresh bool `yaml:"coalesce_refresh" mapstructure:"coalesce_refresh"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.HealthPath == "" {
		c.HealthPath = DefaultHealthPath
	}
	if c.RefreshPath == "" {
		c.RefreshPath = DefaultRefreshPath
	}
	if c.LoginReason == "" {
		c.LoginReason = DefaultLoginReason
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// IsHealthPath reports whether path targets the health check.
func (c *Config) IsHealthPath(path string) bool {
	return c.HealthPath != "" && strings.Contains(path, c.HealthPath)
}
