// Package integration provides end-to-end tests for the cactus daemon.
// These tests wire the controller, persistence, event sinks, and the RPC
// server together on a fake clock.
package integration

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/npratt/cactus/internal/clock"
	"github.com/npratt/cactus/internal/config"
	"github.com/npratt/cactus/internal/controller"
	"github.com/npratt/cactus/internal/daemon"
	"github.com/npratt/cactus/internal/events"
	"github.com/npratt/cactus/internal/model"
	"github.com/npratt/cactus/internal/store"
	"github.com/npratt/cactus/internal/testutil"
)

const flushDelay = 200 * time.Millisecond

// recordingSound counts end sounds.
type recordingSound struct {
	mu      sync.Mutex
	volumes []float64
}

func (s *recordingSound) PlayEndSound(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volumes = append(s.volumes, volume)
}

func (s *recordingSound) played() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.volumes...)
}

// testEnv holds one daemon instance backed by a real state file.
type testEnv struct {
	t         *testing.T
	dataDir   string
	clock     *clock.Fake
	store     *store.Store
	router    *events.Router
	stateSink *events.StateSink
	logSink   *events.LogSink
	sound     *recordingSound
	ctrl      *controller.Controller
	daemon    *daemon.Daemon
	client    *daemon.Client

	sub       <-chan events.Event
	mu        sync.Mutex
	collected []events.Event
	collectWG sync.WaitGroup

	cancel context.CancelFunc
	served chan error
	closed bool
}

// newTestEnv starts a daemon whose state lives in dataDir. The clock
// starts at now.
func newTestEnv(t *testing.T, dataDir string, now time.Time) *testEnv {
	t.Helper()

	env := &testEnv{
		t:       t,
		dataDir: dataDir,
		clock:   clock.NewFake(now),
		sound:   &recordingSound{},
		router:  events.NewRouter(100),
		served:  make(chan error, 1),
	}

	env.store = store.New(store.Options{Path: filepath.Join(dataDir, "cactus.json")})
	initial, err := env.store.Load()
	if err != nil {
		t.Fatalf("load state: %v", err)
	}

	env.stateSink = events.NewStateSink(env.store, nil)
	env.stateSink.SetMinDelay(0)
	env.stateSink.SetAutosaveInterval(0)
	env.logSink = events.NewLogSink(env.eventLogPath(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	env.cancel = cancel

	if err := env.stateSink.Start(ctx, env.router.SubscribeBuffered("state", events.StateBufferSize)); err != nil {
		t.Fatalf("start state sink: %v", err)
	}
	if err := env.logSink.Start(ctx, env.router.Subscribe("log")); err != nil {
		t.Fatalf("start log sink: %v", err)
	}
	env.sub = env.router.SubscribeBuffered("test", 1000)
	env.collectWG.Add(1)
	go env.collect()

	env.ctrl = controller.New(initial, controller.Options{
		Clock:         env.clock,
		Router:        env.router,
		Sink:          env.stateSink,
		Sound:         env.sound,
		EndFlushDelay: flushDelay,
	})

	cfg := config.Default()
	cfg.Paths.DataDir = dataDir
	cfg.Paths.Socket = shortSocketPath(t)
	env.daemon = daemon.New(cfg, env.ctrl, nil)
	env.daemon.OnQuit(cancel)
	go func() { env.served <- env.daemon.Start(ctx) }()

	env.client = daemon.NewClient(cfg.Paths.Socket)
	testutil.WaitFor(t, 2*time.Second, env.client.IsRunning)

	env.router.Emit(&events.DaemonStartEvent{BaseEvent: events.NewDaemonEvent(events.EventDaemonStart), PID: os.Getpid()})
	t.Cleanup(env.close)
	return env
}

func (e *testEnv) eventLogPath() string {
	return filepath.Join(e.dataDir, "events.log")
}

func (e *testEnv) collect() {
	defer e.collectWG.Done()
	for ev := range e.sub {
		e.mu.Lock()
		e.collected = append(e.collected, ev)
		e.mu.Unlock()
	}
}

// count returns how many collected events have the given type.
func (e *testEnv) count(typ events.EventType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.collected {
		if ev.Type() == typ {
			n++
		}
	}
	return n
}

// close mirrors the daemon shutdown order: final save, stop event, then
// drain the sinks.
func (e *testEnv) close() {
	if e.closed {
		return
	}
	e.closed = true

	e.ctrl.Flush()
	e.router.Emit(&events.DaemonStopEvent{BaseEvent: events.NewDaemonEvent(events.EventDaemonStop), Reason: "test"})
	e.router.Close()
	e.collectWG.Wait()
	_ = e.stateSink.Stop()
	_ = e.logSink.Stop()

	e.cancel()
	select {
	case err := <-e.served:
		if err != nil {
			e.t.Errorf("daemon returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		e.t.Error("daemon did not stop")
	}
}

// saved reads the state document from disk.
func (e *testEnv) saved() model.Snapshot {
	e.t.Helper()
	snap, err := store.New(store.Options{Path: e.store.Path()}).Load()
	if err != nil {
		e.t.Fatalf("reload state: %v", err)
	}
	return snap
}

// logTypes returns the event types recorded in the event log.
func (e *testEnv) logTypes() []events.EventType {
	e.t.Helper()
	f, err := os.Open(e.eventLogPath())
	if err != nil {
		e.t.Fatalf("open event log: %v", err)
	}
	defer func() { _ = f.Close() }()

	var types []events.EventType
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry, err := events.ParseLogLine(scanner.Bytes())
		if err != nil {
			e.t.Fatalf("bad event log line %q: %v", scanner.Text(), err)
		}
		types = append(types, entry.Type)
	}
	return types
}

func shortSocketPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "cxsock")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	_ = f.Close()
	_ = os.Remove(path)
	t.Cleanup(func() { _ = os.Remove(path) })
	return path
}
