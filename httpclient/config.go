package httpclient

import (
	"time"

	"github.com/kelmah/sessionkit/resilience"
	"github.com/kelmah/sessionkit/validation"
)

// DefaultTimeout is the fixed per-request timeout.
const DefaultTimeout = 10 * time.Second

// Config configures the HTTP adapter.
type Config struct {
	// Name identifies the adapter in logs and health reports.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is prepended to all request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// WithCredentials keeps cookies set by the API and sends them back on
	// every request.
	WithCredentials bool `yaml:"with_credentials" mapstructure:"with_credentials"`

	// TLS configures the HTTP transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Auth configures default authentication. Requests can override it.
	Auth *AuthConfig `yaml:"-" mapstructure:"-" validate:"-"`

	// Retry retries transient failures of GET, HEAD, OPTIONS and PUT requests.
	// Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-" validate:"-"`

	// CircuitBreaker fails fast while the service is down. Nil disables it.
	CircuitBreaker *resilience.BreakerConfig `yaml:"-" mapstructure:"-" validate:"-"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Name == "" {
		c.Name = "http"
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.TLS.Validate()
}

// DefaultRetryConfig retries connection, timeout, rate-limit and 5xx
// failures with backoff suited to a backend that cold-starts.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// DefaultBreakerConfig opens after five service failures for one minute.
// Client errors do not count.
func DefaultBreakerConfig() *resilience.BreakerConfig {
	cfg := resilience.DefaultBreakerConfig("")
	cfg.IsFailure = isServiceFailure
	return &cfg
}
