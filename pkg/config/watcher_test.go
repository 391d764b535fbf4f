package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", "connector:\n  name: first\n")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	names := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(cfg *Config) error {
			names <- cfg.Connector.Name
			return nil
		})
	}()

	if got := waitFor(t, names); got != "first" {
		t.Fatalf("expected initial load, got %q", got)
	}

	// Invalid files are skipped.
	if err := os.WriteFile(path, []byte("connector:\n  max_retries: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("connector:\n  name: second\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := waitFor(t, names); got != "second" {
		t.Fatalf("expected reload, got %q", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected clean stop, got %v", err)
	}
}

func TestWatcher_ReloadsOnSecretRotation(t *testing.T) {
	dir := t.TempDir()
	secretsDir := filepath.Join(dir, "secrets")
	if err := os.Mkdir(secretsDir, 0o700); err != nil {
		t.Fatal(err)
	}
	secret := writeFile(t, secretsDir, "token", "old")
	if err := os.Chmod(secret, 0o600); err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, dir, "c.yaml", `
secrets:
  dir: secrets
connector:
  headers:
    X-Token: "${secret:token}"
`)

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokens := make(chan string, 10)
	go func() {
		_ = w.Watch(ctx, func(cfg *Config) error {
			tokens <- cfg.Connector.Headers["X-Token"]
			return nil
		})
	}()

	if got := waitFor(t, tokens); got != "old" {
		t.Fatalf("expected initial token, got %q", got)
	}
	if err := os.WriteFile(secret, []byte("new"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := waitFor(t, tokens); got != "new" {
		t.Fatalf("expected rotated token, got %q", got)
	}
}

func TestWatcher_InitialLoadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	w, err := NewWatcher(path, 0, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	if err := w.Watch(context.Background(), func(*Config) error { return nil }); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls int32

	for i := 0; i < 5; i++ {
		d.Trigger(func() { atomic.AddInt32(&calls, 1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected a single debounced call, got %d", got)
	}

	d.Trigger(func() { atomic.AddInt32(&calls, 1) })
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	d.Trigger(func() { atomic.AddInt32(&calls, 1) })
	time.Sleep(60 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected no calls after Stop, got %d", got)
	}
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
		return ""
	}
}
