package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelmah/sessionkit/httpclient"
	"github.com/kelmah/sessionkit/mockapi"
	"github.com/kelmah/sessionkit/observability"
	"github.com/kelmah/sessionkit/session"
	"github.com/kelmah/sessionkit/tokenstore"
	"github.com/kelmah/sessionkit/validation"
)

// Base URLs of the Kelmah API.
const (
	DefaultDevelopmentURL = "http://localhost:5001"
	DefaultProductionURL  = "https://kelmah-auth-service.onrender.com"
)

// Environment variables that override the non-development base URL, in
// order of precedence.
var apiURLEnvVars = []string{"KELMAH_API_URL", "API_URL"}

// APIConfig selects and configures the API endpoint.
type APIConfig struct {
	DevelopmentURL string `yaml:"development_url" mapstructure:"development_url" validate:"required,url"`
	ProductionURL  string `yaml:"production_url" mapstructure:"production_url" validate:"required,url"`
	// URL overrides ProductionURL outside development mode.
	URL     string        `yaml:"url" mapstructure:"url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	// WithCredentials keeps API cookies between calls. Defaults to true.
	WithCredentials *bool `yaml:"with_credentials" mapstructure:"with_credentials"`
}

// ApplyDefaults fills zero values and picks up the URL override from the
// environment.
func (c *APIConfig) ApplyDefaults() {
	if c.DevelopmentURL == "" {
		c.DevelopmentURL = DefaultDevelopmentURL
	}
	if c.ProductionURL == "" {
		c.ProductionURL = DefaultProductionURL
	}
	if c.URL == "" {
		for _, key := range apiURLEnvVars {
			if v := os.Getenv(key); v != "" {
				c.URL = v
				break
			}
		}
	}
	if c.Timeout == 0 {
		c.Timeout = httpclient.DefaultTimeout
	}
	if c.WithCredentials == nil {
		on := true
		c.WithCredentials = &on
	}
}

// Credentials reports whether cookies are kept.
func (c *APIConfig) Credentials() bool {
	return c.WithCredentials == nil || *c.WithCredentials
}

// AppConfig is the full kelmahctl configuration.
type AppConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	API        APIConfig            `yaml:"api" mapstructure:"api"`
	Session    session.Config       `yaml:"session" mapstructure:"session"`
	TokenStore tokenstore.Config    `yaml:"tokenstore" mapstructure:"tokenstore"`
	Telemetry  observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
	MockAPI    mockapi.Config       `yaml:"mockapi" mapstructure:"mockapi"`
}

// ApplyDefaults fills zero values in every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.API.ApplyDefaults()
	c.Session.ApplyDefaults()
	c.TokenStore.ApplyDefaults()

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = c.Version
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = c.Environment
	}
	c.Telemetry.ApplyDefaults()
	c.MockAPI.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(&c.API); err != nil {
		return fmt.Errorf("config.api: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("config.session: %w", err)
	}
	if err := c.TokenStore.Validate(); err != nil {
		return fmt.Errorf("config.tokenstore: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("config.telemetry: %w", err)
	}
	if err := c.MockAPI.Validate(); err != nil {
		return fmt.Errorf("config.mockapi: %w", err)
	}
	return nil
}

// BaseURL is DevelopmentURL in development mode. Otherwise it is the URL
// override when set, else ProductionURL.
func (c *AppConfig) BaseURL() string {
	if c.IsDevelopment() {
		return c.API.DevelopmentURL
	}
	if c.API.URL != "" {
		return c.API.URL
	}
	return c.API.ProductionURL
}

// HTTPClient builds the adapter configuration for the selected API.
func (c *AppConfig) HTTPClient() httpclient.Config {
	return httpclient.Config{
		Name:            "kelmah-api",
		BaseURL:         c.BaseURL(),
		Timeout:         c.API.Timeout,
		WithCredentials: c.API.Credentials(),
		CircuitBreaker:  httpclient.DefaultBreakerConfig(),
	}
}
