package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kelmah/sessionkit/component"
	"github.com/kelmah/sessionkit/encryption"
)

func TestNew_Kinds(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"memory", Config{Kind: KindMemory}},
		{"file", Config{Kind: KindFile, Path: filepath.Join(t.TempDir(), "token")}},
		{"redis", Config{Kind: KindRedis, Redis: RedisConfig{Addr: mr.Addr()}}},
		{"sealed memory", Config{Kind: KindMemory, Passphrase: "pw", Algorithm: "chacha20"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer Close(s)
			exerciseStore(t, s)
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown kind", Config{Kind: "etcd"}},
		{"redis without addr", Config{Kind: KindRedis}},
		{"unknown algorithm", Config{Kind: KindMemory, Passphrase: "pw", Algorithm: "des"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Kind != KindFile {
		t.Errorf("default kind = %q, want file", cfg.Kind)
	}
	if !strings.HasSuffix(cfg.Path, filepath.Join("kelmah", "token")) {
		t.Errorf("default path = %q", cfg.Path)
	}

	rc := Config{Kind: KindRedis}
	rc.ApplyDefaults()
	if rc.Redis.Key != "kelmah:auth:token" {
		t.Errorf("default redis key = %q", rc.Redis.Key)
	}
}

func TestSealed_FileIsNotPlaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	s, err := New(Config{Kind: KindFile, Path: path, Passphrase: "correct horse"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer Close(s)

	const token = "eyJhbGciOiJIUzI1NiJ9.payload.sig"
	if err := s.Set(context.Background(), token); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(raw), token) {
		t.Error("token stored in plaintext")
	}
	if got, ok, err := s.Get(context.Background()); err != nil || !ok || got != token {
		t.Errorf("Get = %q, %v, %v", got, ok, err)
	}
}

func TestSealed_WrongPassphrase(t *testing.T) {
	inner := NewMemory()
	enc1, _ := encryption.New("one")
	enc2, _ := encryption.New("two")

	if err := NewSealed(inner, enc1).Set(context.Background(), "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := NewSealed(inner, enc2).Get(context.Background()); err == nil || ok {
		t.Errorf("expected open failure, got ok=%v err=%v", ok, err)
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewComponent(Config{Kind: KindRedis, Passphrase: "pw", Redis: RedisConfig{Addr: mr.Addr()}})

	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before Start, got %s", h.Status)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Store() == nil {
		t.Fatal("expected store after Start")
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %+v", h)
	}
	d := c.Describe()
	if !strings.Contains(d.Details, mr.Addr()) || !strings.Contains(d.Details, "encrypted") {
		t.Errorf("unexpected description %+v", d)
	}

	mr.Close()
	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after redis shutdown, got %s", h.Status)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestComponent_StartFailsWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c := NewComponent(Config{Kind: KindRedis, Redis: RedisConfig{Addr: addr}})
	if err := c.Start(context.Background()); err == nil {
		t.Error("expected Start to fail when redis is down")
	}
}

func TestComponent_AsStore(t *testing.T) {
	ctx := context.Background()
	c := NewComponent(Config{Kind: KindMemory})

	if _, _, err := c.Get(ctx); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Get before Start: %v", err)
	}
	if err := c.Set(ctx, "tok"); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Set before Start: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "tok"); err != nil {
		t.Fatal(err)
	}
	if tok, ok, _ := c.Store().Get(ctx); !ok || tok != "tok" {
		t.Errorf("store = %q, %v", tok, ok)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx); ok {
		t.Error("expected empty slot after Clear")
	}
}
