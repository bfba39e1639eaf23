package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/kelmah/sessionkit/httpclient"
	"github.com/kelmah/sessionkit/logger"
	"github.com/kelmah/sessionkit/observability"
)

// Client is the session-aware HTTP client. It is safe for concurrent use.
type Client struct {
	transport Transport
	store     TokenStore
	nav       Navigator
	config    Config

	log     *logger.Logger
	clock   clockwork.Clock
	tracer  trace.Tracer
	metrics *observability.SessionMetrics

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	refreshes singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithNavigator sets the sink for login and unauthorized redirects.
func WithNavigator(n Navigator) Option {
	return func(c *Client) {
		if n != nil {
			c.nav = n
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithClock sets the clock used to time requests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithTracerProvider sets the provider for session spans. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracerProvider = tp }
}

// WithMeterProvider sets the provider for session instruments. Defaults to
// the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) { c.meterProvider = mp }
}

// New creates a session client sending through transport and keeping the
// token in store.
func New(transport Transport, store TokenStore, cfg Config, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("session: transport is required")
	}
	if store == nil {
		return nil, fmt.Errorf("session: token store is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	c := &Client{
		transport: transport,
		store:     store,
		nav:       nopNavigator{},
		config:    cfg,
		log:       logger.Get("session"),
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.tracerProvider == nil {
		c.tracerProvider = otel.GetTracerProvider()
	}
	if c.meterProvider == nil {
		c.meterProvider = otel.GetMeterProvider()
	}
	c.tracer = c.tracerProvider.Tracer(observability.InstrumentationName)

	m, err := observability.NewSessionMetrics(c.meterProvider.Meter(observability.InstrumentationName))
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	c.metrics = m

	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Do sends req through the session state machine. Success responses come
// back unchanged. A failed health check yields a synthetic 503 response and
// a nil error. A 401 triggers at most one refresh and one resubmission of the
// same request, body included. Every other failure is returned to the caller.
func (c *Client) Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
	start := c.clock.Now()
	req = req.Clone()
	if err := req.BufferBody(); err != nil {
		return nil, httpclient.NewValidationError(err.Error())
	}

	ctx, span := c.tracer.Start(ctx, observability.SpanSessionRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(observability.AttrMethod, methodOf(req)),
			attribute.String(observability.AttrPath, req.Path),
		),
	)
	defer span.End()

	resp, err := c.send(ctx, &req)
	initial := Classify(req, resp, err)
	span.SetAttributes(attribute.String(observability.AttrInitialOutcome, initial.String()))
	if err != nil {
		resp, err = c.handleFailure(ctx, &req, resp, err)
	}

	outcome := Classify(req, resp, err)
	elapsed := c.clock.Since(start)

	if resp != nil {
		span.SetAttributes(attribute.Int(observability.AttrStatusCode, resp.StatusCode))
	}
	span.SetAttributes(
		attribute.String(observability.AttrOutcome, outcome.String()),
		attribute.Bool(observability.AttrRetried, req.Retried),
	)
	observability.SetSpanError(span, err)
	c.metrics.RecordRequest(ctx, methodOf(req), outcome.String(), elapsed)

	c.log.WithContext(ctx).Debug("request completed", logger.Fields(
		logger.FieldMethod, methodOf(req),
		logger.FieldPath, req.Path,
		logger.FieldStatusCode, statusOf(resp, err),
		logger.FieldOutcome, outcome.String(),
		logger.FieldRetried, req.Retried,
		logger.FieldDuration, elapsed.Milliseconds(),
	))

	return resp, err
}

// send attaches the token unless the request opts out and hands the request
// to the transport. A non-2xx response without an error is given one.
func (c *Client) send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	if !req.SkipAuthRefresh && req.Auth == nil {
		if token, ok := c.currentToken(ctx); ok {
			req.Auth = httpclient.BearerAuth(token)
		}
	}
	resp, err := c.transport.Do(ctx, *req)
	if err == nil && resp != nil && !resp.IsSuccess() {
		err = httpclient.ClassifyStatusCode(resp.StatusCode, resp.Body)
	}
	return resp, err
}

func (c *Client) handleFailure(ctx context.Context, req *httpclient.Request, resp *httpclient.Response, err error) (*httpclient.Response, error) {
	health := c.config.IsHealthPath(req.Path)

	if req.SkipErrorHandling && !health {
		return resp, err
	}

	if httpclient.StatusCode(err) == http.StatusUnauthorized && refreshEligible(*req) {
		resp, err = c.recoverSession(ctx, req, resp, err)
		if err == nil {
			return resp, nil
		}
	}

	if health {
		c.log.WithContext(ctx).Debug("health check failed, returning degraded response", logger.Fields(
			logger.FieldPath, req.Path,
			logger.FieldError, err.Error(),
		))
		return degradedResponse(), nil
	}

	c.observeFailure(ctx, req, err)
	return resp, err
}

// observeFailure logs a failure by class. It never changes the result.
func (c *Client) observeFailure(ctx context.Context, req *httpclient.Request, err error) {
	log := c.log.WithContext(ctx)
	switch {
	case httpclient.IsNetworkUnreachable(err):
		log.Warn("network unreachable", logger.Fields(
			logger.FieldMethod, methodOf(*req),
			logger.FieldPath, req.Path,
			logger.FieldError, err.Error(),
		))
	case httpclient.IsForbidden(err):
		log.Warn("access forbidden", logger.Fields(logger.FieldPath, req.Path))
		if un, ok := c.nav.(UnauthorizedNavigator); ok {
			un.GoToUnauthorized(ctx)
		}
	case httpclient.IsNotFound(err):
		log.Warn("resource not found", logger.Fields(logger.FieldPath, req.Path))
	case httpclient.IsServerError(err):
		log.Error("server error", logger.Fields(
			logger.FieldPath, req.Path,
			logger.FieldStatusCode, httpclient.StatusCode(err),
		))
	}
}

// recoverSession runs the refresh cycle for a 401. When the refresh fails the
// token is cleared, the navigator is sent to login unless the request was a
// health check, and the original response and error are returned.
func (c *Client) recoverSession(ctx context.Context, req *httpclient.Request, origResp *httpclient.Response, origErr error) (*httpclient.Response, error) {
	req.Retried = true

	sent := ""
	if req.Auth != nil && req.Auth.Type == httpclient.AuthBearer {
		sent = req.Auth.Token
	}

	token, err := c.refreshToken(ctx, sent)
	if err != nil {
		c.log.WithContext(ctx).Warn("token refresh failed, clearing session", logger.Fields(
			logger.FieldPath, req.Path,
			logger.FieldError, err.Error(),
		))
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.log.WithContext(ctx).Error("clear token failed", logger.ErrorFields("clear", clearErr))
		}
		if !c.config.IsHealthPath(req.Path) {
			c.nav.GoToLogin(ctx, c.config.LoginReason)
		}
		return origResp, origErr
	}

	req.Auth = httpclient.BearerAuth(token)
	resp, err := c.transport.Do(ctx, *req)
	if err == nil && resp != nil && !resp.IsSuccess() {
		err = httpclient.ClassifyStatusCode(resp.StatusCode, resp.Body)
	}
	return resp, err
}

func (c *Client) currentToken(ctx context.Context) (string, bool) {
	token, ok, err := c.store.Get(ctx)
	if err != nil {
		c.log.WithContext(ctx).Warn("token store read failed, sending without token",
			logger.ErrorFields("get_token", err))
		return "", false
	}
	return token, ok && token != ""
}

func methodOf(req httpclient.Request) string {
	if req.Method == "" {
		return http.MethodGet
	}
	return req.Method
}

func statusOf(resp *httpclient.Response, err error) int {
	if resp != nil {
		return resp.StatusCode
	}
	return httpclient.StatusCode(err)
}
