package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/kelmah/sessionkit/errors"
)

type apiSection struct {
	URL     string        `mapstructure:"url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type sampleConfig struct {
	Name  string     `mapstructure:"name" validate:"required"`
	Mode  string     `mapstructure:"mode" validate:"oneof=development production test"`
	API   apiSection `mapstructure:"api"`
	Email string     `json:"email" validate:"omitempty,email"`
}

func TestStructValidateValid(t *testing.T) {
	cfg := sampleConfig{
		Name: "kelmah",
		Mode: "production",
		API:  apiSection{URL: "https://api.kelmah.example", Timeout: 10 * time.Second},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	cfg := sampleConfig{
		Mode:  "staging",
		API:   apiSection{URL: "not a url"},
		Email: "nope",
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("code = %s", appErr.Code)
	}
	for _, want := range []string{
		"name: is required",
		"mode: must be one of: development production test",
		"api.url: must be a valid URL",
		"api.timeout: must be greater than 0",
		"email: must be a valid email address",
	} {
		if !strings.Contains(appErr.Message, want) {
			t.Errorf("message %q missing %q", appErr.Message, want)
		}
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 5 {
		t.Errorf("expected 5 field errors, got %v", appErr.Details["fields"])
	}
}

func TestFieldPath(t *testing.T) {
	if got := fieldPath("AppConfig.api.url"); got != "api.url" {
		t.Errorf("fieldPath = %q", got)
	}
	if got := fieldPath("name"); got != "name" {
		t.Errorf("fieldPath = %q", got)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"BaseURL":    "base_u_r_l",
		"Timeout":    "timeout",
		"HealthPath": "health_path",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
