package session_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	apperrors "github.com/kelmah/sessionkit/errors"
	"github.com/kelmah/sessionkit/httpclient"
	"github.com/kelmah/sessionkit/logger"
	"github.com/kelmah/sessionkit/mockapi"
	"github.com/kelmah/sessionkit/session"
	"github.com/kelmah/sessionkit/tokenstore"
)

type loginResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

type jobsResponse struct {
	Jobs  []mockapi.Job `json:"jobs"`
	Total int           `json:"total"`
}

type loginRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *loginRecorder) GoToLogin(_ context.Context, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

type harness struct {
	api    *mockapi.Server
	store  *tokenstore.Memory
	nav    *loginRecorder
	client *session.Client
}

func newHarness(t *testing.T, cfg session.Config) *harness {
	t.Helper()
	api, err := mockapi.New(mockapi.Config{TokenTTL: time.Minute}, mockapi.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("mockapi.New: %v", err)
	}
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)

	adapter, err := httpclient.New(httpclient.Config{BaseURL: ts.URL}, httpclient.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("httpclient.New: %v", err)
	}

	h := &harness{api: api, store: tokenstore.NewMemory(), nav: &loginRecorder{}}
	h.client, err = session.New(adapter, h.store, cfg,
		session.WithNavigator(h.nav),
		session.WithLogger(logger.Nop()),
		session.WithTracerProvider(tracenoop.NewTracerProvider()),
		session.WithMeterProvider(noop.NewMeterProvider()),
	)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return h
}

func (h *harness) login(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()
	out, err := session.Post[loginResponse](ctx, h.client, "/api/auth/login",
		map[string]string{"email": email, "password": "password"},
		httpclient.WithSkipAuthRefresh())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := h.store.Set(ctx, out.Data.Token); err != nil {
		t.Fatal(err)
	}
	return out.Data.Token
}

func TestEndToEnd_TransparentRefresh(t *testing.T) {
	h := newHarness(t, session.Config{})
	old := h.login(t, "worker@kelmah.test")
	h.api.ExpireAll()

	jobs, err := session.Get[jobsResponse](context.Background(), h.client, "/api/jobs")
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if jobs.Total != 3 {
		t.Errorf("expected 3 jobs, got %d", jobs.Total)
	}
	if h.api.RefreshCount() != 1 {
		t.Errorf("expected 1 refresh call, got %d", h.api.RefreshCount())
	}
	tok, ok, _ := h.store.Get(context.Background())
	if !ok || tok == old {
		t.Error("expected the refreshed token in the store")
	}

	claims, err := session.ParseClaims(tok)
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if claims.Email != "worker@kelmah.test" || claims.Role != mockapi.RoleWorker {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestEndToEnd_RefreshFailureSendsToLogin(t *testing.T) {
	h := newHarness(t, session.Config{})
	h.login(t, "worker@kelmah.test")
	h.api.ExpireAll()
	h.api.SetRefreshFailing(true)

	_, err := session.Get[jobsResponse](context.Background(), h.client, "/api/jobs")
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized AppError, got %v", err)
	}
	if _, ok, _ := h.store.Get(context.Background()); ok {
		t.Error("token should be cleared")
	}
	if len(h.nav.reasons) != 1 || h.nav.reasons[0] != session.DefaultLoginReason {
		t.Errorf("unexpected login redirects: %v", h.nav.reasons)
	}
}

func TestEndToEnd_HealthDegraded(t *testing.T) {
	h := newHarness(t, session.Config{})
	h.api.SetHealthy(false)

	resp, err := h.client.Do(context.Background(), httpclient.Request{Method: http.MethodGet, Path: "/api/health"})
	if err != nil {
		t.Fatalf("health must not fail: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable || resp.Headers[session.HeaderDegraded] != "true" {
		t.Errorf("expected degraded response, got %d %v", resp.StatusCode, resp.Headers)
	}
}

func TestEndToEnd_ForbiddenAndNotFound(t *testing.T) {
	h := newHarness(t, session.Config{})
	h.login(t, "hirer@kelmah.test")
	ctx := context.Background()

	jobID := h.api.Jobs()[0].ID
	_, err := session.Post[map[string]any](ctx, h.client, "/api/jobs/"+jobID+"/apply",
		map[string]any{"coverLetter": "I can start on Monday.", "proposedRate": 100})
	if appErr := session.AsAppError(err); appErr == nil || appErr.Code != apperrors.ErrCodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if appErr := session.AsAppError(err); appErr.Message != "Only workers can apply to jobs" {
		t.Errorf("message = %q", appErr.Message)
	}

	_, err = session.Get[map[string]any](ctx, h.client, "/api/jobs/missing")
	if appErr := session.AsAppError(err); appErr == nil || appErr.Code != apperrors.ErrCodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if h.api.RefreshCount() != 0 {
		t.Errorf("no refresh expected, got %d", h.api.RefreshCount())
	}
}

func TestEndToEnd_CoalescedRefresh(t *testing.T) {
	h := newHarness(t, session.Config{CoalesceRefresh: true})
	h.login(t, "worker@kelmah.test")
	h.api.ExpireAll()

	const n = 6
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := session.Get[jobsResponse](context.Background(), h.client, "/api/jobs")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("request failed: %v", err)
		}
	}
	if got := h.api.RefreshCount(); got != 1 {
		t.Errorf("expected 1 refresh call, got %d", got)
	}
}
