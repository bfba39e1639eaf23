package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kelmah/sessionkit/component"
	"github.com/kelmah/sessionkit/httpclient"
	"github.com/kelmah/sessionkit/logger"
)

func TestComponent_Health(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != healthPath {
			http.NotFound(w, r)
			return
		}
		if down.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	comp := NewComponent(
		httpclient.NewComponent(httpclient.Config{BaseURL: srv.URL}),
		memoryStore(""),
		Config{},
		WithLogger(logger.Nop()),
	)

	if h := comp.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before Start, got %+v", h)
	}
	if comp.Client() != nil {
		t.Error("Client() should be nil before Start()")
	}

	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer comp.Stop(context.Background())

	if h := comp.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %+v", h)
	}

	down.Store(true)
	h := comp.Health(context.Background())
	if h.Status != component.StatusDegraded || h.Message != "API unreachable" {
		t.Errorf("expected degraded, got %+v", h)
	}
}

func TestComponent_StartFailsOnInvalidAdapter(t *testing.T) {
	comp := NewComponent(httpclient.NewComponent(httpclient.Config{BaseURL: "not a url"}), memoryStore(""), Config{})
	if err := comp.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail")
	}
}

func TestComponent_Describe(t *testing.T) {
	comp := NewComponent(httpclient.NewComponent(httpclient.Config{}), memoryStore(""), Config{CoalesceRefresh: true})
	d := comp.Describe()
	if d.Name != "session" || d.Type != "session-client" {
		t.Errorf("unexpected description %+v", d)
	}
	if !strings.Contains(d.Details, "refresh=/api/auth/refresh") || !strings.Contains(d.Details, "coalesce=true") {
		t.Errorf("unexpected details %q", d.Details)
	}
}

func TestComponent_Registry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	reg := component.NewRegistry()
	comp := NewComponent(httpclient.NewComponent(httpclient.Config{BaseURL: srv.URL}), memoryStore(""), Config{}, WithLogger(logger.Nop()))
	if err := reg.Register(comp); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if got := component.Overall(reg.HealthAll(context.Background())); got != component.StatusHealthy {
		t.Errorf("overall = %s", got)
	}
	if err := reg.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
}
