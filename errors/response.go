package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
)

// ErrorBody is the message shape handed to UI code: `{ message }` plus the
// code that produced it.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToBody converts an AppError to its display shape.
func (e *AppError) ToBody() ErrorBody {
	return ErrorBody{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Message returns the human-readable message for any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// FromHTTP maps an API status code and body to an AppError. A message sent by
// the server takes precedence over the generic message for the status.
func FromHTTP(status int, body []byte, cause error) *AppError {
	var appErr *AppError
	switch {
	case status == http.StatusUnauthorized:
		appErr = Unauthorized("")
	case status == http.StatusForbidden:
		appErr = Forbidden("")
	case status == http.StatusNotFound:
		appErr = NotFound("")
	case status == http.StatusConflict:
		appErr = Conflict("The request conflicts with the current state of the resource.")
	case status == http.StatusTooManyRequests:
		appErr = RateLimited()
	case status >= 400 && status < 500:
		appErr = Validation("The request was invalid.")
		appErr.HTTPStatus = status
	case status >= 500:
		appErr = ServiceUnavailable(status)
	default:
		appErr = Internal(nil)
		appErr.HTTPStatus = status
	}
	if msg := ServerMessage(body); msg != "" {
		appErr.Message = msg
	}
	appErr.Cause = cause
	return appErr
}

// ServerMessage extracts a message from the common Kelmah error payloads:
// {"message": ...}, {"error": "..."} and {"error": {"message": ...}}.
func ServerMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if m := strings.TrimSpace(payload.Message); m != "" {
		return m
	}
	if len(payload.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Error, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}
