package httpclient

import (
	"errors"
	"testing"
	"time"

	"github.com/kelmah/sessionkit/resilience"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %v", cfg.Timeout)
	}
	if cfg.Name != "http" {
		t.Errorf("expected default name http, got %q", cfg.Name)
	}
}

func TestConfig_ApplyDefaults_PreservesExisting(t *testing.T) {
	cfg := Config{Timeout: 3 * time.Second, Name: "kelmah-api"}
	cfg.ApplyDefaults()
	if cfg.Timeout != 3*time.Second || cfg.Name != "kelmah-api" {
		t.Errorf("existing values overwritten: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Timeout: time.Second, BaseURL: "http://localhost:5001"}, false},
		{"empty base url", Config{Timeout: time.Second}, false},
		{"bad base url", Config{Timeout: time.Second, BaseURL: "not a url"}, true},
		{"negative timeout", Config{Timeout: -1}, true},
		{"cert without key", Config{Timeout: time.Second, TLS: &TLSConfig{CertFile: "/cert.pem"}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.RetryIf == nil {
		t.Fatal("expected RetryIf to be set")
	}
	if cfg.RetryIf(ClassifyStatusCode(401, nil)) {
		t.Error("401 must not be retried at the transport level")
	}
	if !cfg.RetryIf(NewConnectionError(errors.New("refused"))) {
		t.Error("connection errors should be retried")
	}
}

func TestDefaultBreakerConfig(t *testing.T) {
	cfg := DefaultBreakerConfig()
	if cfg.FailureThreshold != 5 || cfg.RecoveryTimeout != time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection", NewConnectionError(errors.New("refused")), true},
		{"timeout", NewTimeoutError(errors.New("deadline")), true},
		{"server", ClassifyStatusCode(502, nil), true},
		{"unauthorized", ClassifyStatusCode(401, nil), false},
		{"not found", ClassifyStatusCode(404, nil), false},
		{"foreign error", resilience.ErrCircuitOpen, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cfg.IsFailure(tc.err); got != tc.want {
				t.Errorf("IsFailure() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTLSConfig(t *testing.T) {
	var nilCfg *TLSConfig
	if nilCfg.IsEnabled() {
		t.Error("nil config should be disabled")
	}
	got, err := nilCfg.Build()
	if err != nil || got != nil {
		t.Errorf("nil Build() = %v, %v", got, err)
	}

	cfg := &TLSConfig{SkipVerify: true, ServerName: "kelmah-auth-service.onrender.com"}
	built, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !built.InsecureSkipVerify || built.ServerName != cfg.ServerName {
		t.Errorf("unexpected tls config: %+v", built)
	}
	if built.MinVersion == 0 {
		t.Error("expected a minimum TLS version")
	}

	if _, err := (&TLSConfig{CAFile: "/does/not/exist.pem"}).Build(); err == nil {
		t.Error("expected error for missing CA file")
	}
}
