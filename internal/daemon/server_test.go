package daemon

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"strings"
	"testing"
	"time"
)

// waitForSocket waits for the socket to be ready to accept connections.
func waitForSocket(t *testing.T, socketPath string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("socket did not become ready within %v", timeout)
}

// shortSocketPath creates a short socket path to avoid Unix socket length limits.
// macOS has a 104 byte limit, Linux has 108 bytes.
func shortSocketPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "sock")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	_ = f.Close()
	_ = os.Remove(path)
	t.Cleanup(func() { _ = os.Remove(path) })
	return path
}

// startDaemon runs d until the test ends.
func startDaemon(t *testing.T, d *Daemon) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(ctx) }()
	waitForSocket(t, d.SocketPath(), 2*time.Second)
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Error("daemon did not stop")
		}
	})
	return cancel
}

// rawCall sends one request line and decodes the reply.
func rawCall(t *testing.T, sockPath, payload string) Response {
	t.Helper()
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := conn.Write([]byte(payload + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestDaemon_StartStop(t *testing.T) {
	d, _ := newTestDaemon(t)
	cancel := startDaemon(t, d)

	if !d.Running() {
		t.Error("daemon should be running after Start")
	}
	info, err := os.Stat(d.SocketPath())
	if err != nil {
		t.Fatalf("socket should exist: %v", err)
	}
	if perm := info.Mode().Perm(); perm != socketPermissions {
		t.Errorf("socket permissions = %o, want %o", perm, socketPermissions)
	}
	if d.StartTime().IsZero() {
		t.Error("start time not recorded")
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for d.Running() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if d.Running() {
		t.Error("daemon should stop after context cancel")
	}
	if _, err := os.Stat(d.SocketPath()); !os.IsNotExist(err) {
		t.Error("socket file should be removed after stop")
	}
}

func TestDaemon_StartTwice(t *testing.T) {
	d, _ := newTestDaemon(t)
	startDaemon(t, d)

	if err := d.Start(context.Background()); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("second Start() error = %v", err)
	}
}

func TestDaemon_StaleSocketReplaced(t *testing.T) {
	d, _ := newTestDaemon(t)
	if err := os.WriteFile(d.SocketPath(), []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}
	startDaemon(t, d)

	resp := rawCall(t, d.SocketPath(), `{"method":"get-state","id":1}`)
	if resp.Error != "" {
		t.Errorf("unexpected error: %s", resp.Error)
	}
}

func TestServer_EchoesRequestID(t *testing.T) {
	d, _ := newTestDaemon(t)
	startDaemon(t, d)

	resp := rawCall(t, d.SocketPath(), `{"method":"start-work","id":42}`)
	if resp.ID != 42 {
		t.Errorf("id = %d, want 42", resp.ID)
	}
	if resp.Error != "" {
		t.Fatalf("error: %s", resp.Error)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result is %T", resp.Result)
	}
	state := result["state"].(map[string]any)
	timer := state["timer"].(map[string]any)
	if timer["running"] != true {
		t.Errorf("timer = %v", timer)
	}
}

func TestServer_MalformedRequest(t *testing.T) {
	d, _ := newTestDaemon(t)
	startDaemon(t, d)

	resp := rawCall(t, d.SocketPath(), `{not json`)
	if !strings.Contains(resp.Error, "decode error") {
		t.Errorf("error = %q", resp.Error)
	}
	// The daemon keeps serving after a bad request.
	resp = rawCall(t, d.SocketPath(), `{"method":"status"}`)
	if resp.Error != "" {
		t.Errorf("status after bad request: %s", resp.Error)
	}
}

func TestServer_QuitStopsDaemon(t *testing.T) {
	d, _ := newTestDaemon(t)
	quit := make(chan struct{})
	d.OnQuit(func() { close(quit) })
	startDaemon(t, d)

	resp := rawCall(t, d.SocketPath(), `{"method":"quit"}`)
	if resp.Result != "quitting" {
		t.Errorf("result = %v", resp.Result)
	}
	select {
	case <-quit:
	case <-time.After(2 * time.Second):
		t.Fatal("OnQuit not called")
	}
}

func TestServer_ConcurrentClients(t *testing.T) {
	d, _ := newTestDaemon(t)
	startDaemon(t, d)

	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := NewClient(d.SocketPath()).Extend(1)
			errs <- err
		}()
	}
	for i := 0; i < 20; i++ {
		if err := <-errs; err != nil {
			t.Errorf("client %d: %v", i, err)
		}
	}

	snap := d.Controller().GetState()
	if snap.State.Timer.RemainingSeconds != 20 {
		t.Errorf("remaining = %d, want 20 after 20 one-second extends", snap.State.Timer.RemainingSeconds)
	}
}
