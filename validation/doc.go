// Package validation validates configuration and request payloads with
// go-playground/validator struct tags and reports failures as
// *errors.AppError with per-field details.
//
//	type API struct {
//	    URL     string        `validate:"omitempty,url"`
//	    Timeout time.Duration `validate:"gt=0"`
//	}
//	if err := validation.Validate(cfg); err != nil { ... }
package validation
