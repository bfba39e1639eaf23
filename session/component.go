package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kelmah/sessionkit/component"
	"github.com/kelmah/sessionkit/httpclient"
)

// Component manages a session client and the HTTP adapter beneath it.
type Component struct {
	http   *httpclient.Component
	store  TokenStore
	config Config
	opts   []Option
	client *Client
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a session component over an HTTP adapter component.
// The client is created in Start().
func NewComponent(hc *httpclient.Component, store TokenStore, cfg Config, opts ...Option) *Component {
	cfg.ApplyDefaults()
	return &Component{http: hc, store: store, config: cfg, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	return "session"
}

// Start starts the adapter and builds the client.
func (c *Component) Start(ctx context.Context) error {
	if err := c.http.Start(ctx); err != nil {
		return fmt.Errorf("session: start http adapter: %w", err)
	}
	client, err := New(c.http.Adapter(), c.store, c.config, c.opts...)
	if err != nil {
		return err
	}
	c.client = client
	return nil
}

// Stop stops the adapter.
func (c *Component) Stop(ctx context.Context) error {
	return c.http.Stop(ctx)
}

// Health calls the health endpoint through the client. The synthetic 503 of
// a failed health check reports degraded.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.client == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
		return h
	}

	req := httpclient.Request{Method: http.MethodGet, Path: c.client.config.HealthPath}
	resp, err := c.client.Do(ctx, req)
	switch Classify(req, resp, err) {
	case OutcomeSuccess:
	case OutcomeDegraded:
		h.Status = component.StatusDegraded
		h.Message = "API unreachable"
	default:
		h.Status = component.StatusUnhealthy
		if err != nil {
			h.Message = err.Error()
		}
	}
	return h
}

// Describe returns the component description.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "session-client",
		Details: fmt.Sprintf("health=%s refresh=%s coalesce=%t", c.config.HealthPath, c.config.RefreshPath, c.config.CoalesceRefresh),
	}
}

// Client returns the session client. Must be called after Start().
func (c *Component) Client() *Client {
	return c.client
}
