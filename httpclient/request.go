package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
)

// Request describes an outbound HTTP request.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE).
	Method string
	// Path is appended to the adapter's BaseURL. Can be a full URL.
	Path string
	// Headers are request-specific headers (merged over adapter defaults).
	Headers map[string]string
	// Query are URL query parameters.
	Query map[string]string
	// Body accepts io.Reader, []byte, string, or any value to JSON-encode.
	Body any
	// Auth overrides the adapter-level auth for this request.
	Auth *AuthConfig

	// SkipAuthRefresh disables token attachment and the refresh-and-retry
	// path in the session client.
	SkipAuthRefresh bool
	// SkipErrorHandling makes the session client return failures untouched.
	SkipErrorHandling bool
	// Retried is set once a request has been resubmitted after a token
	// refresh. A Retried request is never refreshed again.
	Retried bool
}

// Clone returns a copy whose header and query maps can be modified freely.
// Body and Auth are shared.
func (r Request) Clone() Request {
	out := r
	out.Headers = maps.Clone(r.Headers)
	out.Query = maps.Clone(r.Query)
	return out
}

// BufferBody reads an io.Reader body into memory so the request can be sent
// more than once. Other body types are left untouched.
func (r *Request) BufferBody() error {
	rd, ok := r.Body.(io.Reader)
	if !ok {
		return nil
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return fmt.Errorf("httpclient: read request body: %w", err)
	}
	r.Body = data
	return nil
}

// Idempotent reports whether the method may be repeated without side effects.
// An empty method means GET.
func (r Request) Idempotent() bool {
	switch r.Method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut:
		return true
	}
	return false
}

// SetHeader sets a header, allocating the map if needed.
func (r *Request) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
}

// RequestOption configures a single request.
type RequestOption func(*Request)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) { r.SetHeader(key, value) }
}

// WithQueryParam adds a query parameter to the request.
func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(map[string]string)
		}
		r.Query[key] = value
	}
}

// WithRequestAuth overrides authentication for the request.
func WithRequestAuth(auth *AuthConfig) RequestOption {
	return func(r *Request) { r.Auth = auth }
}

// WithSkipAuthRefresh marks the request as not eligible for token handling.
func WithSkipAuthRefresh() RequestOption {
	return func(r *Request) { r.SkipAuthRefresh = true }
}

// WithSkipErrorHandling asks the session client to return failures as-is.
func WithSkipErrorHandling() RequestOption {
	return func(r *Request) { r.SkipErrorHandling = true }
}

// Response is the result of an HTTP request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers (first value per key).
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}
