package controller

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/npratt/cactus/internal/clock"
	"github.com/npratt/cactus/internal/events"
	"github.com/npratt/cactus/internal/model"
)

type fakePersister struct {
	mu    sync.Mutex
	saved []model.Snapshot
}

func (f *fakePersister) Persist(snap model.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, snap)
}

func (f *fakePersister) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func (f *fakePersister) last() model.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved[len(f.saved)-1]
}

type fakeSound struct {
	mu      sync.Mutex
	volumes []float64
}

func (f *fakeSound) PlayEndSound(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, v)
}

var epoch = time.UnixMilli(1_700_000_000_000)

func newTestController(t *testing.T) (*Controller, *clock.Fake, *fakePersister, *events.Router) {
	t.Helper()
	fc := clock.NewFake(epoch)
	sink := &fakePersister{}
	router := events.NewRouter(100)
	t.Cleanup(router.Close)

	initial := model.DefaultSnapshot()
	initial.Settings.Durations = model.Durations{WorkMinutes: 25, BreakMinutes: 5}
	c := New(initial, Options{Clock: fc, Router: router, Sink: sink})
	return c, fc, sink, router
}

func drainTypes(ch <-chan events.Event) []events.EventType {
	var out []events.EventType
	for {
		select {
		case e := <-ch:
			out = append(out, e.Type())
		default:
			return out
		}
	}
}

func TestCommandsReturnSnapshots(t *testing.T) {
	c, fc, _, _ := newTestController(t)

	snap := c.StartWork()
	if !snap.State.Timer.Running || snap.State.Timer.RemainingSeconds != 1500 {
		t.Fatalf("StartWork timer = %+v", snap.State.Timer)
	}

	fc.Advance(100 * time.Second)
	snap = c.GetState()
	if snap.State.Timer.RemainingSeconds != 1400 {
		t.Errorf("GetState remaining = %d, want 1400 (fresh, not cached)", snap.State.Timer.RemainingSeconds)
	}

	snap = c.Pause()
	if snap.State.Timer.Running || snap.State.Phase() != model.PhasePaused {
		t.Errorf("Pause phase = %s", snap.State.Phase())
	}

	snap = c.Extend(-100)
	if snap.State.Timer.RemainingSeconds != 1300 {
		t.Errorf("Extend remaining = %d, want 1300", snap.State.Timer.RemainingSeconds)
	}

	snap = c.Resume()
	if !snap.State.Timer.Running {
		t.Error("Resume should run")
	}

	snap = c.StartBreak()
	if !snap.State.Timer.IsBreak || snap.State.Timer.RemainingSeconds != 300 {
		t.Errorf("StartBreak timer = %+v", snap.State.Timer)
	}

	snap = c.Stop()
	if snap.State.Timer.Running || snap.State.Phase() != model.PhasePaused {
		t.Errorf("Stop phase = %s, timer = %+v", snap.State.Phase(), snap.State.Timer)
	}
}

func TestTogglePause(t *testing.T) {
	c, fc, _, _ := newTestController(t)
	c.StartWork()
	fc.Advance(10 * time.Second)

	if snap := c.TogglePause(); snap.State.Timer.Running {
		t.Error("first toggle should pause")
	}
	if snap := c.TogglePause(); !snap.State.Timer.Running {
		t.Error("second toggle should resume")
	}
}

func TestCommandsEmitState(t *testing.T) {
	c, _, _, router := newTestController(t)
	ch := router.Subscribe("test")

	c.StartWork()
	c.Pause()
	c.Pause() // no-op
	c.Resume()
	c.Extend(60)
	c.Stop()

	got := drainTypes(ch)
	if len(got) != 5 {
		t.Fatalf("events = %v, want 5 state events", got)
	}
	for _, typ := range got {
		if typ != events.EventState {
			t.Errorf("unexpected event %s", typ)
		}
	}
}

func TestSaveSettingsMergesAndPersists(t *testing.T) {
	c, _, sink, router := newTestController(t)
	ch := router.Subscribe("test")

	snap, err := c.SaveSettings(json.RawMessage(`{"theme":"blue","durations":{"breakMinutes":10}}`))
	if err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if snap.Settings.Theme != "blue" {
		t.Errorf("theme = %q, want blue", snap.Settings.Theme)
	}
	if snap.Settings.Durations.WorkMinutes != 25 || snap.Settings.Durations.BreakMinutes != 10 {
		t.Errorf("durations = %+v", snap.Settings.Durations)
	}

	if got := drainTypes(ch); len(got) != 1 || got[0] != events.EventState {
		t.Errorf("events = %v, want [state]", got)
	}
	if sink.count() != 1 || sink.last().Settings.Theme != "blue" {
		t.Errorf("persisted %d snapshots", sink.count())
	}

	// New durations apply to the next start.
	if got := c.StartBreak().State.Timer.RemainingSeconds; got != 600 {
		t.Errorf("break remaining = %d, want 600", got)
	}
}

func TestSaveSettingsRejectsInvalid(t *testing.T) {
	c, _, sink, _ := newTestController(t)

	for _, doc := range []string{
		`{"durations":{"workMinutes":-1}}`,
		`{"soundVolume":101}`,
		`not json`,
	} {
		if _, err := c.SaveSettings(json.RawMessage(doc)); err == nil {
			t.Errorf("SaveSettings(%s) succeeded", doc)
		}
	}
	if c.Settings().Durations.WorkMinutes != 25 {
		t.Errorf("settings changed after rejected input: %+v", c.Settings())
	}
	if sink.count() != 0 {
		t.Errorf("rejected settings were persisted")
	}
}

func TestNaturalEndFlushesAndPlaysSound(t *testing.T) {
	fc := clock.NewFake(epoch)
	sink := &fakePersister{}
	sound := &fakeSound{}
	router := events.NewRouter(100)
	defer router.Close()
	ch := router.Subscribe("test")

	initial := model.DefaultSnapshot()
	initial.Settings.Durations.WorkMinutes = 1
	initial.Settings.SoundVolume = 50
	c := New(initial, Options{Clock: fc, Router: router, Sink: sink, Sound: sound})

	c.StartWork()
	for i := 0; i < 60; i++ {
		fc.Advance(time.Second)
		c.Tick()
	}

	types := drainTypes(ch)
	foundEnd := false
	for _, typ := range types {
		if typ == events.EventTimerEnded {
			foundEnd = true
		}
	}
	if !foundEnd {
		t.Errorf("events %v missing timer-ended", types)
	}
	if len(sound.volumes) != 1 || sound.volumes[0] != 0.5 {
		t.Errorf("sound volumes = %v, want [0.5]", sound.volumes)
	}

	if sink.count() != 0 {
		t.Fatalf("flushed before delay")
	}
	fc.Advance(250 * time.Millisecond)
	if sink.count() != 1 {
		t.Fatalf("flush count = %d, want 1", sink.count())
	}
	if le := sink.last().State.LastEnded; le == nil || le.IsBreak {
		t.Errorf("persisted lastEnded = %+v", le)
	}
}

func TestRunFinalSave(t *testing.T) {
	sink := &fakePersister{}
	c := New(model.DefaultSnapshot(), Options{Sink: sink, TickInterval: 5 * time.Millisecond})
	c.StartWork()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	if sink.count() != 1 {
		t.Fatalf("final saves = %d, want 1", sink.count())
	}
	if !sink.last().State.Timer.Running {
		t.Error("final save should capture the running timer")
	}
}

func TestRunTwiceFails(t *testing.T) {
	c := New(model.DefaultSnapshot(), Options{TickInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = c.Run(ctx) }()
	deadline := time.Now().Add(time.Second)
	for {
		c.runMu.Lock()
		running := c.running
		c.runMu.Unlock()
		if running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Run never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := c.Run(ctx); err == nil {
		t.Error("second Run should fail")
	}
}

func TestNilCollaborators(t *testing.T) {
	c := New(model.DefaultSnapshot(), Options{})
	c.StartWork()
	c.Flush()
	if _, err := c.SaveSettings(json.RawMessage(`{"theme":"green"}`)); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if c.GetState().Settings.Theme != "green" {
		t.Error("theme not applied")
	}
}
