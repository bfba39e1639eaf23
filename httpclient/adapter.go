package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/kelmah/sessionkit/logger"
	"github.com/kelmah/sessionkit/resilience"
	"github.com/kelmah/sessionkit/version"
)

// Header names set on every outgoing request.
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderClientVersion = "X-Client-Version"
)

// Adapter is a configurable HTTP adapter with auth, TLS, cookies, and
// optional retry and circuit breaking.
type Adapter struct {
	httpClient *http.Client
	config     Config
	breaker    *resilience.Breaker
	registry   *resilience.Registry
	transport  http.RoundTripper
	requestID  func() string
	log        *logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(a *Adapter) { a.transport = rt }
}

// WithBreakerRegistry takes the circuit breaker from a shared registry so
// adapters for the same service share one breaker.
func WithBreakerRegistry(reg *resilience.Registry) Option {
	return func(a *Adapter) { a.registry = reg }
}

// WithRequestIDGenerator overrides the X-Request-ID generator.
func WithRequestIDGenerator(fn func() string) Option {
	return func(a *Adapter) { a.requestID = fn }
}

// WithLogger sets the adapter logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// New creates a new HTTP adapter with the given configuration.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		config:    cfg,
		requestID: uuid.NewString,
		log:       logger.Get("httpclient"),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.transport == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		if tlsCfg != nil {
			transport.TLSClientConfig = tlsCfg
		}
		a.transport = transport
	}

	a.httpClient = &http.Client{
		Transport: a.transport,
		Timeout:   cfg.Timeout,
	}

	if cfg.WithCredentials {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("httpclient: cookie jar: %w", err)
		}
		a.httpClient.Jar = jar
	}

	if cfg.CircuitBreaker != nil {
		key := cfg.CircuitBreaker.Name
		if key == "" {
			key = cfg.BaseURL
		}
		if a.registry != nil {
			a.breaker = a.registry.Get(key)
		} else {
			bc := *cfg.CircuitBreaker
			bc.Name = key
			a.breaker = resilience.NewBreaker(bc)
		}
	}

	return a, nil
}

// Do executes an HTTP request and returns the complete response.
// Non-2xx responses are returned together with a classified *Error.
// Retry applies to idempotent methods only.
func (a *Adapter) Do(ctx context.Context, req Request) (*Response, error) {
	if a.config.Retry != nil && req.Idempotent() {
		if err := req.BufferBody(); err != nil {
			return nil, NewValidationError(err.Error())
		}
		return resilience.Retry(ctx, *a.config.Retry, func() (*Response, error) {
			return a.doOnce(ctx, req)
		})
	}
	return a.doOnce(ctx, req)
}

// Unwrap returns the underlying *http.Client.
func (a *Adapter) Unwrap() *http.Client {
	return a.httpClient
}

func (a *Adapter) doOnce(ctx context.Context, req Request) (*Response, error) {
	if a.breaker == nil {
		return a.executeRequest(ctx, req)
	}
	if !a.breaker.Allow() {
		return nil, &Error{
			Code:    ErrCodeConnection,
			Message: "service temporarily unavailable (circuit open)",
			Err:     resilience.ErrCircuitOpen,
		}
	}
	resp, err := a.executeRequest(ctx, req)
	a.breaker.Record(err)
	return resp, err
}

func (a *Adapter) executeRequest(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := a.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		classified := classifyTransportError(ctx, err)
		a.log.Debug("request failed", logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldPath, req.Path,
			logger.FieldRequestID, httpReq.Header.Get(HeaderRequestID),
			logger.FieldError, classified.Message,
		))
		return nil, classified
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, fmt.Errorf("read response body: %w", err))
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
	}

	if classErr := ClassifyStatusCode(resp.StatusCode, body); classErr != nil {
		return result, classErr
	}
	return result, nil
}

func classifyTransportError(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return NewCanceledError(err)
	case ctx.Err() != nil:
		return NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

// buildRequest constructs an *http.Request from the adapter config and request.
func (a *Adapter) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := a.ResolveURL(req.Path)

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	httpReq.Header.Set(HeaderClientVersion, version.ClientVersion())
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if httpReq.Header.Get(HeaderRequestID) == "" {
		id := logger.RequestIDFromContext(ctx)
		if id == "" {
			id = a.requestID()
		}
		httpReq.Header.Set(HeaderRequestID, id)
	}

	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	auth := a.config.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	auth.apply(httpReq)

	return httpReq, nil
}

// ResolveURL joins path onto the base URL. Absolute URLs are returned as-is.
func (a *Adapter) ResolveURL(path string) string {
	if a.config.BaseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(a.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.config.Name
}

// IsAvailable reports false while the circuit breaker is open.
func (a *Adapter) IsAvailable(_ context.Context) bool {
	if a.breaker != nil {
		return a.breaker.State() != resilience.StateOpen
	}
	return true
}

// Breaker returns the adapter's circuit breaker, or nil.
func (a *Adapter) Breaker() *resilience.Breaker {
	return a.breaker
}

// Close releases idle connections.
func (a *Adapter) Close(_ context.Context) error {
	a.httpClient.CloseIdleConnections()
	return nil
}

// GetConfig returns the adapter's configuration.
func (a *Adapter) GetConfig() Config {
	return a.config
}
