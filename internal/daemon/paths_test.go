package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDaemonInfoPath(t *testing.T) {
	got := DaemonInfoPath("/home/u/.local/share/cactus")
	if got != "/home/u/.local/share/cactus/daemon.json" {
		t.Errorf("DaemonInfoPath() = %q", got)
	}
}

func TestWriteReadDaemonInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "daemon.json")
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	info := &DaemonInfo{
		SocketPath: "/run/cactus.sock",
		PIDPath:    "/run/cactus.pid",
		StatePath:  "/data/cactus.json",
		LogPath:    "/data/events.log",
		StartTime:  start,
		PID:        1234,
	}

	if err := WriteDaemonInfo(path, info); err != nil {
		t.Fatalf("WriteDaemonInfo() error: %v", err)
	}

	got, err := ReadDaemonInfo(path)
	if err != nil {
		t.Fatalf("ReadDaemonInfo() error: %v", err)
	}
	if !got.StartTime.Equal(start) {
		t.Errorf("StartTime = %v, want %v", got.StartTime, start)
	}
	got.StartTime = start
	if *got != *info {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, info)
	}
}

func TestReadDaemonInfo_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadDaemonInfo(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("{"), 0644)
	if _, err := ReadDaemonInfo(bad); err == nil || !strings.Contains(err.Error(), "unmarshal") {
		t.Errorf("expected unmarshal error, got %v", err)
	}
}

func TestRemoveDaemonInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.json")
	_ = os.WriteFile(path, []byte("{}"), 0644)

	if err := RemoveDaemonInfo(path); err != nil {
		t.Fatalf("RemoveDaemonInfo() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be removed")
	}
	if err := RemoveDaemonInfo(path); err != nil {
		t.Errorf("removing a missing file should succeed, got %v", err)
	}
}

func TestFindDaemonInfo(t *testing.T) {
	t.Run("live process", func(t *testing.T) {
		dir := t.TempDir()
		want := &DaemonInfo{SocketPath: "/tmp/live.sock", PID: os.Getpid()}
		if err := WriteDaemonInfo(DaemonInfoPath(dir), want); err != nil {
			t.Fatal(err)
		}
		got, err := FindDaemonInfo(dir)
		if err != nil {
			t.Fatalf("FindDaemonInfo() error: %v", err)
		}
		if got.SocketPath != want.SocketPath {
			t.Errorf("SocketPath = %q", got.SocketPath)
		}
	})

	t.Run("dead process", func(t *testing.T) {
		dir := t.TempDir()
		_ = WriteDaemonInfo(DaemonInfoPath(dir), &DaemonInfo{SocketPath: "/tmp/dead.sock", PID: deadPID})
		if _, err := FindDaemonInfo(dir); err == nil || !strings.Contains(err.Error(), "stale") {
			t.Errorf("expected stale error, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := FindDaemonInfo(t.TempDir()); err == nil {
			t.Error("expected error")
		}
	})
}

func TestResolveSocket(t *testing.T) {
	dir := t.TempDir()
	if got := ResolveSocket(dir, "/fallback.sock"); got != "/fallback.sock" {
		t.Errorf("ResolveSocket() without info = %q", got)
	}

	_ = WriteDaemonInfo(DaemonInfoPath(dir), &DaemonInfo{SocketPath: "/tmp/running.sock", PID: os.Getpid()})
	if got := ResolveSocket(dir, "/fallback.sock"); got != "/tmp/running.sock" {
		t.Errorf("ResolveSocket() with live info = %q", got)
	}
}
