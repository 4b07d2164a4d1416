package daemon

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/npratt/cactus/internal/model"
)

// mockServer starts a mock daemon server that returns canned responses.
func mockServer(t *testing.T, sockPath string, handler func(req Request) Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-done:
					return
				default:
					continue
				}
			}

			go func(c net.Conn) {
				defer func() { _ = c.Close() }()

				var req Request
				if err := json.NewDecoder(c).Decode(&req); err != nil {
					return
				}

				resp := handler(req)
				resp.ID = req.ID
				_ = json.NewEncoder(c).Encode(resp)
			}(conn)
		}
	}()

	return func() {
		close(done)
		_ = listener.Close()
		_ = os.Remove(sockPath)
	}
}

func TestClient_Status_Success(t *testing.T) {
	sockPath := shortSocketPath(t)

	cleanup := mockServer(t, sockPath, func(req Request) Response {
		if req.Method != MethodStatus {
			return Response{Error: "unexpected method"}
		}
		return Response{
			Result: StatusResponse{
				Phase:            "running",
				IsBreak:          true,
				RemainingSeconds: 95,
				PID:              4242,
				Uptime:           "1h30m",
				StartTime:        "2026-01-15T10:00:00Z",
			},
		}
	})
	defer cleanup()

	status, err := NewClient(sockPath).Status()
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if status.Phase != "running" || !status.IsBreak || status.RemainingSeconds != 95 {
		t.Errorf("status = %+v", status)
	}
	if status.PID != 4242 {
		t.Errorf("pid = %d, want 4242", status.PID)
	}
}

func TestClient_SnapshotMethods(t *testing.T) {
	sockPath := shortSocketPath(t)

	cleanup := mockServer(t, sockPath, func(req Request) Response {
		snap := model.DefaultSnapshot()
		snap.Settings.Theme = req.Method // echo the method back through the payload
		return Response{Result: snap}
	})
	defer cleanup()

	client := NewClient(sockPath)
	tests := []struct {
		method string
		call   func() (model.Snapshot, error)
	}{
		{MethodGetState, client.GetState},
		{MethodStartWork, client.StartWork},
		{MethodStartBreak, client.StartBreak},
		{MethodStop, client.Stop},
		{MethodPause, client.Pause},
		{MethodResume, client.Resume},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			snap, err := tt.call()
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if snap.Settings.Theme != tt.method {
				t.Errorf("server saw method %q, want %q", snap.Settings.Theme, tt.method)
			}
		})
	}
}

func TestClient_Extend_SendsSeconds(t *testing.T) {
	sockPath := shortSocketPath(t)

	var got ExtendParams
	cleanup := mockServer(t, sockPath, func(req Request) Response {
		if req.Method != MethodExtend {
			return Response{Error: "unexpected method"}
		}
		_ = json.Unmarshal(req.Params, &got)
		snap := model.DefaultSnapshot()
		snap.State.Timer.RemainingSeconds = got.Seconds
		return Response{Result: snap}
	})
	defer cleanup()

	snap, err := NewClient(sockPath).Extend(-60)
	if err != nil {
		t.Fatalf("Extend() error: %v", err)
	}
	if got.Seconds != -60 {
		t.Errorf("server received seconds=%d, want -60", got.Seconds)
	}
	if snap.State.Timer.RemainingSeconds != -60 {
		t.Errorf("snapshot not decoded: %+v", snap.State.Timer)
	}
}

func TestClient_SaveSettings_SendsPartial(t *testing.T) {
	sockPath := shortSocketPath(t)

	var got SaveSettingsParams
	cleanup := mockServer(t, sockPath, func(req Request) Response {
		_ = json.Unmarshal(req.Params, &got)
		return Response{Result: model.DefaultSnapshot()}
	})
	defer cleanup()

	partial := json.RawMessage(`{"soundVolume":40}`)
	if _, err := NewClient(sockPath).SaveSettings(partial); err != nil {
		t.Fatalf("SaveSettings() error: %v", err)
	}
	if string(got.Settings) != string(partial) {
		t.Errorf("server received %s, want %s", got.Settings, partial)
	}
}

func TestClient_Quit(t *testing.T) {
	sockPath := shortSocketPath(t)

	cleanup := mockServer(t, sockPath, func(req Request) Response {
		if req.Method != MethodQuit {
			return Response{Error: "unexpected method"}
		}
		return Response{Result: "quitting"}
	})
	defer cleanup()

	if err := NewClient(sockPath).Quit(); err != nil {
		t.Errorf("Quit() error: %v", err)
	}
}

func TestClient_AgainstDaemon(t *testing.T) {
	d, _ := newTestDaemon(t)
	startDaemon(t, d)
	client := NewClient(d.SocketPath())

	snap, err := client.StartWork()
	if err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}
	if snap.State.Phase() != model.PhaseRunning {
		t.Errorf("phase = %s, want running", snap.State.Phase())
	}

	snap, err = client.SaveSettings(json.RawMessage(`{"theme":"blue"}`))
	if err != nil {
		t.Fatalf("SaveSettings() error: %v", err)
	}
	if snap.Settings.Theme != "blue" {
		t.Errorf("theme = %q, want blue", snap.Settings.Theme)
	}

	_, err = client.SaveSettings(json.RawMessage(`{"theme":42}`))
	if err == nil {
		t.Error("expected error for invalid settings")
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if status.Phase != "running" {
		t.Errorf("status phase = %q", status.Phase)
	}
}

func TestClient_IsRunning_True(t *testing.T) {
	sockPath := shortSocketPath(t)

	cleanup := mockServer(t, sockPath, func(req Request) Response {
		return Response{Result: "ok"}
	})
	defer cleanup()

	if !NewClient(sockPath).IsRunning() {
		t.Error("expected IsRunning() to return true")
	}
}

func TestClient_IsRunning_False(t *testing.T) {
	if NewClient("/tmp/nonexistent.sock").IsRunning() {
		t.Error("expected IsRunning() to return false for nonexistent socket")
	}
}

func TestClient_SocketNotFound(t *testing.T) {
	_, err := NewClient("/tmp/nonexistent.sock").GetState()
	if err == nil {
		t.Fatal("expected error for nonexistent socket")
	}

	expected := "daemon not running (socket not found)"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestClient_DaemonError(t *testing.T) {
	sockPath := shortSocketPath(t)

	cleanup := mockServer(t, sockPath, func(req Request) Response {
		return Response{Error: "no controller available"}
	})
	defer cleanup()

	_, err := NewClient(sockPath).Status()
	if err == nil {
		t.Fatal("expected error for daemon error response")
	}

	expected := "daemon error: no controller available"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestClient_SetTimeout(t *testing.T) {
	client := NewClient("/tmp/test.sock")

	if client.timeout != DefaultClientTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultClientTimeout, client.timeout)
	}

	client.SetTimeout(10 * time.Second)
	if client.timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", client.timeout)
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	tmp := t.TempDir()
	sockPath := filepath.Join(tmp, "test.sock")

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("create socket: %v", err)
	}
	// Close immediately to simulate connection refused
	_ = listener.Close()

	_, err = NewClient(sockPath).Status()
	if err == nil {
		t.Fatal("expected error for closed socket")
	}
	if err.Error() != "daemon not running (connection refused)" &&
		err.Error() != "daemon not running (socket not found)" {
		// On some systems, closed socket shows as not found
		t.Logf("got error: %v (acceptable)", err)
	}
}
