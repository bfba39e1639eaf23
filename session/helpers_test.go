package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/kelmah/sessionkit/httpclient"
	"github.com/kelmah/sessionkit/logger"
	"github.com/kelmah/sessionkit/tokenstore"
)

type handlerFunc func(req httpclient.Request) (*httpclient.Response, error)

// fakeTransport records every request and answers through handler.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []httpclient.Request
	handler handlerFunc
}

func (f *fakeTransport) Do(_ context.Context, req httpclient.Request) (*httpclient.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.handler(req)
}

func (f *fakeTransport) callsTo(path string) []httpclient.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []httpclient.Request
	for _, c := range f.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// reply builds the adapter's answer for a status: non-2xx comes with a
// classified error.
func reply(status int, body string) (*httpclient.Response, error) {
	resp := &httpclient.Response{StatusCode: status, Body: []byte(body)}
	if err := httpclient.ClassifyStatusCode(status, resp.Body); err != nil {
		return resp, err
	}
	return resp, nil
}

func bearer(req httpclient.Request) string {
	if req.Auth == nil || req.Auth.Type != httpclient.AuthBearer {
		return ""
	}
	return req.Auth.Token
}

type recordingNavigator struct {
	mu           sync.Mutex
	logins       []string
	unauthorized int
}

func (n *recordingNavigator) GoToLogin(_ context.Context, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logins = append(n.logins, reason)
}

func (n *recordingNavigator) GoToUnauthorized(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unauthorized++
}

func (n *recordingNavigator) loginCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.logins)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context) (string, bool, error) { return "", false, errors.New("disk gone") }
func (brokenStore) Set(context.Context, string) error         { return errors.New("disk gone") }
func (brokenStore) Clear(context.Context) error               { return errors.New("disk gone") }

func newTestClient(t *testing.T, tr Transport, store TokenStore, cfg Config, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithLogger(logger.Nop()),
		WithTracerProvider(tracenoop.NewTracerProvider()),
		WithMeterProvider(noop.NewMeterProvider()),
	}
	c, err := New(tr, store, cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func storedToken(t *testing.T, s TokenStore) (string, bool) {
	t.Helper()
	tok, ok, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	return tok, ok
}

func memoryStore(token string) *tokenstore.Memory {
	if token == "" {
		return tokenstore.NewMemory()
	}
	return tokenstore.NewMemoryWith(token)
}
