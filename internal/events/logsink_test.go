package events

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/npratt/cactus/internal/model"
)

func TestLogSinkCreatesDirectory(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "subdir", "nested", "events.log")

	sink := NewLogSink(path, nil)
	events := make(chan Event, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sink.Start(ctx, events); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}

	cancel()
	_ = sink.Stop()
}

func TestLogSinkWritesJSONLines(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "events.log")

	sink := NewLogSink(path, nil)
	events := make(chan Event, 10)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sink.Start(ctx, events); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	events <- &DaemonStartEvent{BaseEvent: NewDaemonEvent(EventDaemonStart), PID: 4242}
	events <- stateEvent(1500)
	events <- NewTimerEvent(EventTimerEnded, time.Now(), model.DefaultSnapshot())

	time.Sleep(50 * time.Millisecond)
	cancel()
	_ = sink.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), data)
	}

	wantTypes := []EventType{EventDaemonStart, EventState, EventTimerEnded}
	for i, line := range lines {
		entry, err := ParseLogLine([]byte(line))
		if err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if entry.Type != wantTypes[i] {
			t.Errorf("line %d type = %s, want %s", i, entry.Type, wantTypes[i])
		}
	}

	first, _ := ParseLogLine([]byte(lines[0]))
	if first.PID != 4242 {
		t.Errorf("daemon start pid = %d, want 4242", first.PID)
	}
	if !strings.Contains(lines[1], `"remainingSeconds":1500`) {
		t.Errorf("state line missing payload: %s", lines[1])
	}
}

func TestLogSinkRotatesExistingFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "events.log")

	initial := `{"type":"state","timestamp":"2024-01-01T00:00:00Z","source":"timer"}` + "\n"
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write initial content: %v", err)
	}

	sink := NewLogSink(path, nil)
	events := make(chan Event, 10)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sink.Start(ctx, events); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	events <- &DaemonStopEvent{BaseEvent: NewDaemonEvent(EventDaemonStop), Reason: "test"}

	time.Sleep(50 * time.Millisecond)
	cancel()
	_ = sink.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if strings.Contains(string(data), "2024-01-01") {
		t.Error("expected old content to be rotated out")
	}
	if !strings.Contains(string(data), `"type":"daemon.stop"`) {
		t.Error("expected new event in fresh log")
	}

	baks, _ := filepath.Glob(path + ".*.bak")
	if len(baks) != 1 {
		t.Fatalf("found %d backups, want 1", len(baks))
	}
	old, _ := os.ReadFile(baks[0])
	if string(old) != initial {
		t.Errorf("backup content = %q, want %q", old, initial)
	}
}

func TestLogSinkHandlesClosedChannel(t *testing.T) {
	sink := NewLogSink(filepath.Join(t.TempDir(), "events.log"), nil)
	events := make(chan Event, 10)

	if err := sink.Start(context.Background(), events); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	close(events)

	done := make(chan struct{})
	go func() {
		_ = sink.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Stop timed out after channel close")
	}
}

func TestParseLogLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    EventType
		wantErr bool
	}{
		{"state", `{"type":"state","source":"timer","payload":{}}`, EventState, false},
		{"lifecycle", `{"type":"daemon.start","source":"cactus","pid":1}`, EventDaemonStart, false},
		{"missing type", `{"source":"timer"}`, "", true},
		{"garbage", `not json`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ParseLogLine([]byte(tt.line))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if entry.Type != tt.want {
				t.Errorf("type = %s, want %s", entry.Type, tt.want)
			}
		})
	}
}

func TestLogSinkPath(t *testing.T) {
	sink := NewLogSink("/path/to/events.log", nil)
	if sink.Path() != "/path/to/events.log" {
		t.Errorf("Path() = %q, want %q", sink.Path(), "/path/to/events.log")
	}
}
