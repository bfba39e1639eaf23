package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kelmah/sessionkit/logger"
	"github.com/kelmah/sessionkit/resilience"
)

func newAdapter(t *testing.T, cfg Config, opts ...Option) *Adapter {
	t.Helper()
	a, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

// closedURL returns a base URL nothing is listening on.
func closedURL(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return "http://" + addr
}

func TestAdapter_Do_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/jobs/42" {
			t.Errorf("expected /api/jobs/42, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("status") != "open" {
			t.Errorf("expected status=open, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"title": "Fix roof"})
	}))
	defer srv.Close()

	a := newAdapter(t, Config{BaseURL: srv.URL + "/"})
	resp, err := a.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/api/jobs/42",
		Query:  map[string]string{"status": "open"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() || resp.IsError() {
		t.Errorf("expected success, got %d", resp.StatusCode)
	}
	var job struct{ Title string }
	if err := resp.Decode(&job); err != nil || job.Title != "Fix roof" {
		t.Errorf("Decode() = %+v, %v", job, err)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("headers not flattened: %v", resp.Headers)
	}
}

func TestAdapter_Do_POST_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	a := newAdapter(t, Config{BaseURL: srv.URL})
	resp, err := a.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/jobs/1/apply",
		Body:   map[string]string{"coverLetter": "I can help"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "I can help") {
		t.Errorf("unexpected body %s", resp.Body)
	}
}

func TestAdapter_Do_ErrorStatusReturnsResponseAndError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token expired"}`))
	}))
	defer srv.Close()

	a := newAdapter(t, Config{BaseURL: srv.URL})
	resp, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/jobs"})
	if !IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response alongside the error, got %+v", resp)
	}
	e, _ := AsError(err)
	if string(e.Body) != `{"message":"Token expired"}` {
		t.Errorf("error body = %q", e.Body)
	}
}

func TestAdapter_Do_DefaultHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	a := newAdapter(t, Config{
		BaseURL: srv.URL,
		Headers: map[string]string{"X-Platform": "cli"},
	}, WithRequestIDGenerator(func() string { return "req-1" }))

	_, err := a.Do(context.Background(), Request{
		Path:    "/api/health",
		Headers: map[string]string{"X-Platform": "override"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Get(HeaderRequestID) != "req-1" {
		t.Errorf("X-Request-ID = %q", got.Get(HeaderRequestID))
	}
	if got.Get(HeaderClientVersion) == "" {
		t.Error("expected X-Client-Version")
	}
	if got.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", got.Get("Accept"))
	}
	if got.Get("X-Platform") != "override" {
		t.Errorf("request headers should override defaults, got %q", got.Get("X-Platform"))
	}
}

func TestAdapter_Do_RequestIDFromContext(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(HeaderRequestID)
	}))
	defer srv.Close()

	a := newAdapter(t, Config{BaseURL: srv.URL})
	ctx := logger.ContextWithRequestID(context.Background(), "ctx-id")
	if _, err := a.Do(ctx, Request{Path: "/"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ctx-id" {
		t.Errorf("X-Request-ID = %q, want ctx-id", got)
	}
}

func TestAdapter_Do_Auth(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	a := newAdapter(t, Config{BaseURL: srv.URL, Auth: BearerAuth("default")})

	_, _ = a.Do(context.Background(), Request{Path: "/"})
	if got != "Bearer default" {
		t.Errorf("expected adapter auth, got %q", got)
	}
	_, _ = a.Do(context.Background(), Request{Path: "/", Auth: BearerAuth("override")})
	if got != "Bearer override" {
		t.Errorf("expected request auth, got %q", got)
	}
	_, _ = a.Do(context.Background(), Request{Path: "/", Auth: NoAuth()})
	if got != "" {
		t.Errorf("expected no auth, got %q", got)
	}
}

func TestAdapter_Do_ConnectionRefused(t *testing.T) {
	a := newAdapter(t, Config{BaseURL: closedURL(t)})
	resp, err := a.Do(context.Background(), Request{Path: "/api/jobs"})
	if resp != nil {
		t.Errorf("expected no response, got %+v", resp)
	}
	if !IsConnection(err) || !IsNetworkUnreachable(err) {
		t.Errorf("expected network-unreachable connection error, got %v", err)
	}
}

func TestAdapter_Do_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	a := newAdapter(t, Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := a.Do(context.Background(), Request{Path: "/slow"})
	if !IsTimeout(err) || !IsNetworkUnreachable(err) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestAdapter_Do_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	a := newAdapter(t, Config{BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Do(ctx, Request{Path: "/"})
	if !IsCanceled(err) {
		t.Errorf("expected canceled, got %v", err)
	}
	if IsNetworkUnreachable(err) {
		t.Error("cancellation is not a network failure")
	}
}

func TestAdapter_WithCredentials_KeepsCookies(t *testing.T) {
	var sawCookie atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/login" {
			http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "r1", Path: "/"})
			return
		}
		if c, err := r.Cookie("refreshToken"); err == nil && c.Value == "r1" {
			sawCookie.Store(true)
		}
	}))
	defer srv.Close()

	a := newAdapter(t, Config{BaseURL: srv.URL, WithCredentials: true})
	_, _ = a.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/auth/login"})
	_, _ = a.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/auth/refresh"})
	if !sawCookie.Load() {
		t.Error("expected cookie to be sent back")
	}

	plain := newAdapter(t, Config{BaseURL: srv.URL})
	if plain.Unwrap().Jar != nil {
		t.Error("cookie jar must be off without WithCredentials")
	}
}

func TestAdapter_Retry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	a := newAdapter(t, Config{BaseURL: srv.URL, Retry: retry})

	resp, err := a.Do(context.Background(), Request{Path: "/api/health"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if resp.StatusCode != 200 || calls.Load() != 3 {
		t.Errorf("status=%d calls=%d", resp.StatusCode, calls.Load())
	}
}

func TestAdapter_Retry_SkipsClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	a := newAdapter(t, Config{BaseURL: srv.URL, Retry: retry})

	resp, err := a.Do(context.Background(), Request{Path: "/api/jobs"})
	if !IsAuth(err) || resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401 response and error, got %v, %v", resp, err)
	}
	if calls.Load() != 1 {
		t.Errorf("401 must not be retried, got %d calls", calls.Load())
	}
}

func TestAdapter_Retry_OnlyIdempotentMethods(t *testing.T) {
	tests := []struct {
		method string
		calls  int32
	}{
		{http.MethodGet, 3},
		{http.MethodPut, 3},
		{http.MethodPost, 1},
		{http.MethodPatch, 1},
		{http.MethodDelete, 1},
	}
	for _, tc := range tests {
		t.Run(tc.method, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			retry := DefaultRetryConfig()
			retry.InitialBackoff = time.Millisecond
			a := newAdapter(t, Config{BaseURL: srv.URL, Retry: retry})

			_, err := a.Do(context.Background(), Request{Method: tc.method, Path: "/api/jobs/1/apply"})
			if !IsServerError(err) {
				t.Fatalf("expected server error, got %v", err)
			}
			if got := calls.Load(); got != tc.calls {
				t.Errorf("calls = %d, want %d", got, tc.calls)
			}
		})
	}
}

func TestAdapter_Retry_ReplaysReaderBody(t *testing.T) {
	var (
		calls  atomic.Int32
		bodies = make(chan string, 3)
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies <- string(b)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	a := newAdapter(t, Config{BaseURL: srv.URL, Retry: retry})

	_, err := a.Do(context.Background(), Request{
		Method: http.MethodPut,
		Path:   "/api/profile",
		Body:   strings.NewReader(`{"name":"Kwame"}`),
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	close(bodies)
	for b := range bodies {
		if b != `{"name":"Kwame"}` {
			t.Errorf("attempt sent body %q", b)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestAdapter_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	cb := DefaultBreakerConfig()
	cb.FailureThreshold = 2
	cb.Clock = clock
	reg := resilience.NewRegistry(*cb)
	a := newAdapter(t, Config{BaseURL: srv.URL, CircuitBreaker: cb}, WithBreakerRegistry(reg))

	for i := 0; i < 2; i++ {
		_, _ = a.Do(context.Background(), Request{Path: "/api/jobs"})
	}
	if a.IsAvailable(context.Background()) {
		t.Fatal("expected breaker to be open")
	}

	resp, err := a.Do(context.Background(), Request{Path: "/api/jobs"})
	if resp != nil || !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected fast failure, got %v, %v", resp, err)
	}
	if !IsNetworkUnreachable(err) {
		t.Error("open circuit should read as network unreachable")
	}
	if calls.Load() != 2 {
		t.Errorf("server should not be called while open, got %d", calls.Load())
	}
	if reg.Get(srv.URL) != a.Breaker() {
		t.Error("adapter should use the registry breaker keyed by base URL")
	}

	clock.Advance(time.Minute)
	if !a.IsAvailable(context.Background()) {
		t.Error("expected half-open after recovery timeout")
	}
}

func TestAdapter_CircuitBreaker_IgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cb := DefaultBreakerConfig()
	cb.FailureThreshold = 1
	a := newAdapter(t, Config{BaseURL: srv.URL, CircuitBreaker: cb})

	for i := 0; i < 3; i++ {
		_, _ = a.Do(context.Background(), Request{Path: "/api/jobs/missing"})
	}
	if a.Breaker().State() != resilience.StateClosed {
		t.Errorf("404s must not open the breaker, got %s", a.Breaker().State())
	}
}

func TestAdapter_ResolveURL(t *testing.T) {
	a := newAdapter(t, Config{BaseURL: "http://localhost:5001/"})
	tests := map[string]string{
		"/api/jobs":               "http://localhost:5001/api/jobs",
		"api/jobs":                "http://localhost:5001/api/jobs",
		"https://other.test/ping": "https://other.test/ping",
	}
	for in, want := range tests {
		if got := a.ResolveURL(in); got != want {
			t.Errorf("ResolveURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{BaseURL: "::bad::"}); err == nil {
		t.Error("expected validation error")
	}
}

func TestRequest_Clone(t *testing.T) {
	orig := Request{
		Path:    "/api/jobs",
		Headers: map[string]string{"A": "1"},
		Query:   map[string]string{"page": "1"},
	}
	cp := orig.Clone()
	cp.SetHeader("Authorization", "Bearer x")
	cp.Query["page"] = "2"
	cp.Retried = true

	if _, ok := orig.Headers["Authorization"]; ok {
		t.Error("clone shares header map")
	}
	if orig.Query["page"] != "1" || orig.Retried {
		t.Error("clone mutated the original")
	}
}

func TestRequestOptions(t *testing.T) {
	var req Request
	for _, opt := range []RequestOption{
		WithHeader("X-A", "1"),
		WithQueryParam("q", "plumber"),
		WithRequestAuth(BearerAuth("t")),
		WithSkipAuthRefresh(),
		WithSkipErrorHandling(),
	} {
		opt(&req)
	}
	if req.Headers["X-A"] != "1" || req.Query["q"] != "plumber" || req.Auth.Token != "t" {
		t.Errorf("unexpected request: %+v", req)
	}
	if !req.SkipAuthRefresh || !req.SkipErrorHandling {
		t.Error("flags not set")
	}
}
