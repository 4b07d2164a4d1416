package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("sound:\n  enabled: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int32
	changed := make(chan *Config, 4)
	reload := func() (*Config, error) {
		reloads.Add(1)
		cfg := Default()
		cfg.Sound.Enabled = false
		return cfg, nil
	}

	w, err := NewWatcher([]string{path}, reload, func(c *Config) { changed <- c }, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Several writes inside the debounce window produce one reload.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("sound:\n  enabled: false\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case cfg := <-changed:
		if cfg.Sound.Enabled {
			t.Error("onChange received stale config")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}

	time.Sleep(100 * time.Millisecond)
	if n := reloads.Load(); n != 1 {
		t.Errorf("reloads = %d, want 1", n)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int32
	reload := func() (*Config, error) {
		reloads.Add(1)
		return Default(), nil
	}
	w, err := NewWatcher([]string{path}, reload, func(*Config) {}, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.SetDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if n := reloads.Load(); n != 0 {
		t.Errorf("reloads = %d, want 0", n)
	}
}

func TestWatcherKeepsConfigOnReloadError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	attempted := make(chan struct{}, 4)
	var called atomic.Bool
	reload := func() (*Config, error) {
		attempted <- struct{}{}
		return nil, errors.New("bad yaml")
	}
	w, err := NewWatcher([]string{path}, reload, func(*Config) { called.Store(true) }, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.SetDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(path, []byte("x: ["), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-attempted:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload attempt")
	}
	if called.Load() {
		t.Error("onChange called after failed reload")
	}
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher([]string{"/nonexistent/dir/config.yaml"}, nil, nil, nil)
	if err == nil {
		t.Error("expected error watching a missing directory")
	}
}
