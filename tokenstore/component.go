package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/kelmah/sessionkit/component"
	"github.com/kelmah/sessionkit/logger"
)

// Component builds a Store on Start and releases it on Stop.
type Component struct {
	cfg   Config
	store Store
	log   *logger.Logger
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)
var _ Store = (*Component)(nil)

// ErrNotStarted is returned by the Store methods of a Component before Start.
var ErrNotStarted = errors.New("tokenstore: component not started")

// NewComponent creates a token store component for the registry.
func NewComponent(cfg Config) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: logger.Get("tokenstore")}
}

// Store returns the store, or nil before Start.
func (c *Component) Store() Store { return c.store }

// Get reads the slot of the started store. The component can stand in for
// its Store before Start, so consumers can be wired up front.
func (c *Component) Get(ctx context.Context) (string, bool, error) {
	if c.store == nil {
		return "", false, ErrNotStarted
	}
	return c.store.Get(ctx)
}

// Set writes the slot of the started store.
func (c *Component) Set(ctx context.Context, token string) error {
	if c.store == nil {
		return ErrNotStarted
	}
	return c.store.Set(ctx, token)
}

// Clear empties the slot of the started store.
func (c *Component) Clear(ctx context.Context) error {
	if c.store == nil {
		return ErrNotStarted
	}
	return c.store.Clear(ctx)
}

// Name returns the component name.
func (c *Component) Name() string { return "tokenstore" }

// Start builds the store and, for Redis, verifies connectivity.
func (c *Component) Start(ctx context.Context) error {
	store, err := New(c.cfg)
	if err != nil {
		return fmt.Errorf("tokenstore start: %w", err)
	}
	if p, ok := pinger(store); ok {
		if err := p.Ping(ctx); err != nil {
			_ = Close(store)
			return fmt.Errorf("tokenstore start ping: %w", err)
		}
	}
	c.store = store
	return nil
}

// Stop closes the store.
func (c *Component) Stop(_ context.Context) error {
	if c.store == nil {
		return nil
	}
	err := Close(c.store)
	c.store = nil
	return err
}

// Health pings Redis or reads the slot for the other backends.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.store == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "token store not initialized"
		return h
	}
	if p, ok := pinger(c.store); ok {
		if err := p.Ping(ctx); err != nil {
			h.Status = component.StatusUnhealthy
			h.Message = fmt.Sprintf("ping failed: %v", err)
		}
		return h
	}
	if _, _, err := c.store.Get(ctx); err != nil {
		h.Status = component.StatusUnhealthy
		h.Message = err.Error()
	}
	return h
}

// Describe returns the component description.
func (c *Component) Describe() component.Description {
	details := string(c.cfg.Kind)
	switch c.cfg.Kind {
	case KindFile:
		details += " " + c.cfg.Path
	case KindRedis:
		details += fmt.Sprintf(" %s db=%d key=%s", c.cfg.Redis.Addr, c.cfg.Redis.DB, c.cfg.Redis.Key)
	}
	if c.cfg.Passphrase != "" {
		details += " (encrypted)"
	}
	return component.Description{Name: "Token Store", Type: "tokenstore", Details: details}
}

func pinger(s Store) (interface{ Ping(context.Context) error }, bool) {
	if sealed, ok := s.(*Sealed); ok {
		s = sealed.Unwrap()
	}
	p, ok := s.(interface{ Ping(context.Context) error })
	return p, ok
}
