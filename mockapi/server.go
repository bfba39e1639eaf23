package mockapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/kelmah/sessionkit/component"
	"github.com/kelmah/sessionkit/logger"
)

// Server is the mock Kelmah API.
type Server struct {
	config Config
	engine *gin.Engine
	tokens *issuer
	log    *logger.Logger
	clock  clockwork.Clock

	healthy        atomic.Bool
	refreshFailing atomic.Bool
	generation     atomic.Int64
	refreshCalls   atomic.Int64

	mu           sync.RWMutex
	users        []User
	jobs         []Job
	applications map[string][]Application

	lifecycle  sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

var _ component.Component = (*Server)(nil)
var _ component.Describable = (*Server)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithClock sets the clock used to issue and verify tokens.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// New creates a healthy server with seeded jobs.
func New(cfg Config, opts ...Option) (*Server, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mockapi: %w", err)
	}

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:       cfg,
		log:          logger.Get("mockapi"),
		clock:        clockwork.NewRealClock(),
		users:        append([]User(nil), cfg.Users...),
		applications: make(map[string][]Application),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = &issuer{secret: []byte(cfg.Secret), ttl: cfg.TokenTTL, clock: s.clock}
	s.healthy.Store(true)

	hirerID := ""
	for _, u := range s.users {
		if u.Role == RoleHirer {
			hirerID = u.ID
			break
		}
	}
	s.jobs = seedJobs(s.clock.Now(), hirerID)

	s.engine = gin.New()
	s.engine.Use(recovery(s.log), requestID(), s.requestLogger())
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetHealthy switches the health endpoint between 200 and 503.
func (s *Server) SetHealthy(healthy bool) {
	s.healthy.Store(healthy)
}

// SetRefreshFailing makes the refresh endpoint answer 401.
func (s *Server) SetRefreshFailing(failing bool) {
	s.refreshFailing.Store(failing)
}

// ExpireAll revokes every token issued so far. Revoked tokens can still be
// exchanged at the refresh endpoint.
func (s *Server) ExpireAll() {
	gen := s.generation.Add(1)
	s.log.Info("all tokens revoked", logger.Fields("generation", gen))
}

// RefreshCount reports how many refresh calls the server received.
func (s *Server) RefreshCount() int64 {
	return s.refreshCalls.Load()
}

// IssueToken signs a current token for the user with the given email.
func (s *Server) IssueToken(email string) (string, error) {
	u, ok := s.userByEmail(email)
	if !ok {
		return "", fmt.Errorf("mockapi: unknown user %q", email)
	}
	return s.tokens.issue(u, s.generation.Load())
}

// Jobs returns the current job listings.
func (s *Server) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Job(nil), s.jobs...)
}

// Applications returns the applications filed against a job.
func (s *Server) Applications(jobID string) []Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Application(nil), s.applications[jobID]...)
}

// Name returns the component name.
func (s *Server) Name() string {
	return "mockapi"
}

// Start binds the listen address and serves in the background. It returns
// once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.httpServer != nil {
		return fmt.Errorf("mockapi: already started")
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("mockapi: bind %s: %w", s.config.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = srv
	s.listener = ln

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", logger.ErrorFields("serve", err))
		}
	}()

	s.log.Info("mock API listening", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.lifecycle.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mockapi: shutdown: %w", err)
	}
	s.log.Info("mock API stopped")
	return nil
}

// Health reports the state of the health switch.
func (s *Server) Health(context.Context) component.Health {
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	if !s.healthy.Load() {
		h.Status = component.StatusUnhealthy
		h.Message = "health switch off"
	}
	return h
}

// Describe returns the listen address.
func (s *Server) Describe() component.Description {
	return component.Description{Name: "Mock API", Type: "mockapi", Details: s.Addr()}
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// URL returns the base URL clients should use.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

func (s *Server) userByEmail(email string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

func (s *Server) userByID(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
