package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// deadPID is a PID far above any default pid_max.
const deadPID = 99999999

func TestNewPIDFile(t *testing.T) {
	path := "/tmp/test.pid"
	pf := NewPIDFile(path)

	if pf.Path() != path {
		t.Errorf("expected path %s, got %s", path, pf.Path())
	}
	if pf.Held() {
		t.Error("new PIDFile should not hold the lock")
	}
}

func TestPIDFile_AcquireAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cactus.pid")
	pf := NewPIDFile(path)

	if err := pf.Acquire(); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	defer func() { _ = pf.Release() }()

	if !pf.Held() {
		t.Error("Held() = false after Acquire")
	}
	if pid := pf.Read(); pid != os.Getpid() {
		t.Errorf("expected pid %d, got %d", os.Getpid(), pid)
	}
	if !pf.IsRunning() {
		t.Error("IsRunning() = false for own pid")
	}
}

func TestPIDFile_AcquireOverwritesLongerContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cactus.pid")
	if err := os.WriteFile(path, []byte("1234567890123\n"), 0644); err != nil {
		t.Fatal(err)
	}
	pf := NewPIDFile(path)
	if err := pf.Acquire(); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	defer func() { _ = pf.Release() }()

	if pid := pf.Read(); pid != os.Getpid() {
		t.Errorf("expected pid %d, got %d", os.Getpid(), pid)
	}
}

func TestPIDFile_SecondAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cactus.pid")

	first := NewPIDFile(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire() error: %v", err)
	}
	defer func() { _ = first.Release() }()

	second := NewPIDFile(path)
	err := second.Acquire()
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Acquire() error = %v, want ErrAlreadyRunning", err)
	}
	if second.Held() {
		t.Error("second PIDFile should not hold the lock")
	}
}

func TestPIDFile_ReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cactus.pid")

	first := NewPIDFile(path)
	if err := first.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("PID file should be removed")
	}
	if err := first.Release(); err != nil {
		t.Errorf("second Release() error: %v", err)
	}

	second := NewPIDFile(path)
	if err := second.Acquire(); err != nil {
		t.Fatalf("Acquire() after release error: %v", err)
	}
	_ = second.Release()
}

func TestPIDFile_Read(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content *string
		want    int
	}{
		{"missing", nil, 0},
		{"garbage", ptr("not-a-pid"), 0},
		{"valid with whitespace", ptr("  4321\n"), 4321},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".pid")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0644); err != nil {
					t.Fatal(err)
				}
			}
			if got := NewPIDFile(path).Read(); got != tt.want {
				t.Errorf("Read() = %d, want %d", got, tt.want)
			}
		})
	}
}

func ptr(s string) *string { return &s }

func TestIsProcessRunning(t *testing.T) {
	tests := []struct {
		name string
		pid  int
		want bool
	}{
		{"current process", os.Getpid(), true},
		{"zero", 0, false},
		{"negative", -1, false},
		{"nonexistent", deadPID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsProcessRunning(tt.pid); got != tt.want {
				t.Errorf("IsProcessRunning(%d) = %v, want %v", tt.pid, got, tt.want)
			}
		})
	}
}

func TestPIDFile_CleanupStale_DeadProcess(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "cactus.pid")
	sockPath := filepath.Join(dir, "cactus.sock")
	_ = os.WriteFile(pidPath, []byte("99999999\n"), 0644)
	_ = os.WriteFile(sockPath, nil, 0644)

	NewPIDFile(pidPath).CleanupStale(sockPath)

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("stale PID file should be removed")
	}
	if _, err := os.Stat(sockPath); !os.IsNotExist(err) {
		t.Error("stale socket should be removed")
	}
}

func TestPIDFile_CleanupStale_LiveProcess(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "cactus.pid")
	sockPath := filepath.Join(dir, "cactus.sock")
	pf := NewPIDFile(pidPath)
	if err := pf.Acquire(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = pf.Release() }()
	_ = os.WriteFile(sockPath, nil, 0644)

	pf.CleanupStale(sockPath)

	if _, err := os.Stat(pidPath); err != nil {
		t.Error("live PID file should be kept")
	}
	if _, err := os.Stat(sockPath); err != nil {
		t.Error("live socket should be kept")
	}
}

func TestPIDFile_CleanupStale_EmptySocketPath(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "cactus.pid")
	_ = os.WriteFile(pidPath, []byte("99999999\n"), 0644)

	NewPIDFile(pidPath).CleanupStale("")

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("stale PID file should be removed")
	}
}
