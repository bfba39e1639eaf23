package session

import (
	"context"
	"net/http"

	apperrors "github.com/kelmah/sessionkit/errors"
	"github.com/kelmah/sessionkit/httpclient"
)

// Get issues a GET and decodes the JSON response into T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...httpclient.RequestOption) (T, error) {
	return call[T](ctx, c, http.MethodGet, path, nil, opts)
}

// Post issues a POST with a JSON body and decodes the response into T.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...httpclient.RequestOption) (T, error) {
	return call[T](ctx, c, http.MethodPost, path, body, opts)
}

// Put issues a PUT with a JSON body and decodes the response into T.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...httpclient.RequestOption) (T, error) {
	return call[T](ctx, c, http.MethodPut, path, body, opts)
}

// Patch issues a PATCH with a JSON body and decodes the response into T.
func Patch[T any](ctx context.Context, c *Client, path string, body any, opts ...httpclient.RequestOption) (T, error) {
	return call[T](ctx, c, http.MethodPatch, path, body, opts)
}

// Delete issues a DELETE and decodes the response into T.
func Delete[T any](ctx context.Context, c *Client, path string, opts ...httpclient.RequestOption) (T, error) {
	return call[T](ctx, c, http.MethodDelete, path, nil, opts)
}

// call runs one request and converts every failure into an *errors.AppError
// carrying a human-readable message.
func call[T any](ctx context.Context, c *Client, method, path string, body any, opts []httpclient.RequestOption) (T, error) {
	var out T

	req := httpclient.Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&req)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return out, AsAppError(err)
	}
	if err := resp.Decode(&out); err != nil {
		return out, apperrors.Decode(err)
	}
	return out, nil
}

// AsAppError converts a session or transport error into an *errors.AppError.
// Errors that already are AppErrors pass through.
func AsAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	httpErr, ok := httpclient.AsError(err)
	if !ok {
		return apperrors.Internal(err)
	}
	if httpErr.HasResponse() {
		return apperrors.FromHTTP(httpErr.StatusCode, httpErr.Body, err)
	}
	switch httpErr.Code {
	case httpclient.ErrCodeTimeout:
		return apperrors.Timeout().WithCause(err)
	case httpclient.ErrCodeConnection:
		return apperrors.ConnectionFailed().WithCause(err)
	case httpclient.ErrCodeCanceled:
		return apperrors.Canceled(err)
	case httpclient.ErrCodeValidation:
		return apperrors.Validation(httpErr.Message).WithCause(err)
	default:
		return apperrors.Internal(err)
	}
}
