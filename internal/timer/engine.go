// Package timer implements the work/break countdown engine.
//
// While a countdown runs, the absolute end timestamp is the source of truth
// and the cached remaining seconds are recomputed from it on every
// observation, so missed or delayed ticks (system sleep, a busy host) never
// cause drift.
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/npratt/cactus/internal/clock"
	"github.com/npratt/cactus/internal/events"
	"github.com/npratt/cactus/internal/model"
)

// DefaultTickInterval is the period of the tick driver.
const DefaultTickInterval = time.Second

// DefaultEndFlushDelay is how long after a natural end the state is flushed.
const DefaultEndFlushDelay = 250 * time.Millisecond

// MaxExtendSeconds caps how far Extend can push the remaining time.
const MaxExtendSeconds = 24 * 60 * 60

// SettingsSource supplies the current settings.
type SettingsSource interface {
	Settings() model.Settings
}

// Emitter receives state and end notifications.
type Emitter interface {
	Emit(event events.Event)
}

// EndSound plays the end-of-countdown sound at volume 0..1.
type EndSound interface {
	PlayEndSound(volume float64)
}

// Flusher writes the current state to disk.
type Flusher interface {
	Flush()
}

// Config holds the engine's collaborators. Only Settings is required.
type Config struct {
	Clock         clock.Clock
	Settings      SettingsSource
	Emitter       Emitter
	Sound         EndSound
	Flusher       Flusher
	EndFlushDelay time.Duration
	Logger        *slog.Logger
	// Initial is the state restored from disk.
	Initial model.State
}

// Engine owns the TimerState. A single mutex guards the whole state, so
// ticks and commands from the tray, RPC, and TUI never interleave.
type Engine struct {
	mu         sync.Mutex
	state      model.State
	clock      clock.Clock
	settings   SettingsSource
	emitter    Emitter
	sound      EndSound
	flusher    Flusher
	flushDelay time.Duration
	logger     *slog.Logger
	flushTimer clock.Timer
}

// New creates an engine from cfg.
func New(cfg Config) *Engine {
	e := &Engine{
		state:      cfg.Initial.Clone(),
		clock:      cfg.Clock,
		settings:   cfg.Settings,
		emitter:    cfg.Emitter,
		sound:      cfg.Sound,
		flusher:    cfg.Flusher,
		flushDelay: cfg.EndFlushDelay,
		logger:     cfg.Logger,
	}
	if e.clock == nil {
		e.clock = clock.System
	}
	if e.flushDelay <= 0 {
		e.flushDelay = DefaultEndFlushDelay
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.state.Timer.RemainingSeconds < 0 {
		e.state.Timer.RemainingSeconds = 0
	}
	return e
}

func (e *Engine) nowMillis() int64 {
	return e.clock.Now().UnixMilli()
}

// remainingLocked computes remaining seconds. Must be called with e.mu held.
func (e *Engine) remainingLocked(nowMs int64) int {
	t := e.state.Timer
	if !t.Running {
		return max(0, t.RemainingSeconds)
	}
	diff := t.EndTimestamp - nowMs
	if diff <= 0 {
		return 0
	}
	return int(diff / 1000)
}

// Remaining returns the remaining whole seconds. This is the value every
// display should use; the cached field is stale while running.
func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remainingLocked(e.nowMillis())
}

// State returns a copy of the raw engine state, with the cached remaining
// value replaced by a fresh computation.
func (e *Engine) State() model.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.publicStateLocked(e.nowMillis())
}

func (e *Engine) publicStateLocked(nowMs int64) model.State {
	st := e.state.Clone()
	st.Timer.RemainingSeconds = e.remainingLocked(nowMs)
	return st
}

// Snapshot returns {settings, state} with a freshly computed remaining value.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(e.nowMillis())
}

func (e *Engine) snapshotLocked(nowMs int64) model.Snapshot {
	return model.Snapshot{
		Settings: e.currentSettings(),
		State:    e.publicStateLocked(nowMs),
	}
}

func (e *Engine) currentSettings() model.Settings {
	if e.settings == nil {
		return model.DefaultSettings()
	}
	return e.settings.Settings()
}

// emitLocked publishes a notification. Emit must not block; the router
// drops events for full subscribers.
func (e *Engine) emitLocked(eventType events.EventType, nowMs int64) {
	if e.emitter == nil {
		return
	}
	snap := e.snapshotLocked(nowMs)
	e.emitter.Emit(events.NewTimerEvent(eventType, time.UnixMilli(nowMs), snap))
}

// Notify emits a state event without changing the timer, used after
// settings change so consumers repaint with the new theme or durations.
func (e *Engine) Notify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitLocked(events.EventState, e.nowMillis())
}

// Start begins a work or break countdown using the configured duration,
// interrupting whatever was running.
func (e *Engine) Start(isBreak bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowMillis()
	seconds := max(0, e.currentSettings().DurationSeconds(isBreak))

	e.state.Timer = model.TimerState{
		Running:          true,
		IsBreak:          isBreak,
		RemainingSeconds: seconds,
		InitialSeconds:   seconds,
		EndTimestamp:     now + int64(seconds)*1000,
	}
	e.state.LastEnded = nil
	e.logger.Debug("timer started", "is_break", isBreak, "seconds", seconds)
	e.emitLocked(events.EventState, now)
}

// Stop halts the countdown. The cached remaining value is left as is.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowMillis()
	e.state.Timer.Running = false
	e.state.Timer.EndTimestamp = 0
	e.logger.Debug("timer stopped")
	e.emitLocked(events.EventState, now)
}

// Pause freezes the remaining time. No-op unless running.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Timer.Running {
		return
	}
	now := e.nowMillis()
	e.state.Timer.RemainingSeconds = e.remainingLocked(now)
	e.state.Timer.Running = false
	e.state.Timer.EndTimestamp = 0
	e.logger.Debug("timer paused", "remaining", e.state.Timer.RemainingSeconds)
	e.emitLocked(events.EventState, now)
}

// Resume restarts a paused countdown. No-op when running or when nothing
// remains.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Timer.Running || e.state.Timer.RemainingSeconds <= 0 {
		return
	}
	now := e.nowMillis()
	e.resumeLocked(now)
	e.logger.Debug("timer resumed", "remaining", e.state.Timer.RemainingSeconds)
	e.emitLocked(events.EventState, now)
}

func (e *Engine) resumeLocked(nowMs int64) {
	t := &e.state.Timer
	t.EndTimestamp = nowMs + int64(t.RemainingSeconds)*1000
	t.Running = true
	if t.InitialSeconds == 0 {
		t.InitialSeconds = t.RemainingSeconds
	}
	e.state.LastEnded = nil
}

// Extend adds delta seconds (possibly negative). A running countdown moves
// its end timestamp. A stopped one adjusts the remaining value, clamped at
// zero, and auto-resumes only if the previous countdown had ended.
func (e *Engine) Extend(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowMillis()
	t := &e.state.Timer
	if t.Running {
		before := e.remainingLocked(now)
		t.EndTimestamp += int64(extendedRemaining(before, delta)-before) * 1000
		t.RemainingSeconds = e.remainingLocked(now)
	} else {
		t.RemainingSeconds = extendedRemaining(t.RemainingSeconds, delta)
		if t.RemainingSeconds > 0 && e.state.LastEnded != nil {
			e.resumeLocked(now)
		} else {
			t.EndTimestamp = 0
		}
	}
	e.logger.Debug("timer extended", "delta", delta, "running", t.Running, "remaining", t.RemainingSeconds)
	e.emitLocked(events.EventState, now)
}

// extendedRemaining adds delta to remaining, clamped at zero and at
// MaxExtendSeconds. A positive delta never lowers the result.
func extendedRemaining(remaining, delta int) int {
	delta = max(-MaxExtendSeconds, min(MaxExtendSeconds, delta))
	remaining = max(0, remaining)
	limit := max(remaining, MaxExtendSeconds)
	return max(0, min(limit, remaining+delta))
}

// Tick refreshes the cached remaining value and detects the natural end.
// It reports whether the countdown ended on this tick.
func (e *Engine) Tick() bool {
	ended, volume := e.tickLocked()
	if ended && e.sound != nil {
		e.sound.PlayEndSound(volume)
	}
	return ended
}

func (e *Engine) tickLocked() (ended bool, volume float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Timer.Running {
		return false, 0
	}

	now := e.nowMillis()
	rem := e.remainingLocked(now)
	last := e.state.Timer.RemainingSeconds
	e.state.Timer.RemainingSeconds = rem

	if rem <= 0 {
		ended = true
		e.state.Timer.Running = false
		e.state.Timer.EndTimestamp = 0
		e.state.LastEnded = &model.LastEnded{IsBreak: e.state.Timer.IsBreak, EndedAt: now}
		volume = e.currentSettings().VolumeFraction()
		e.logger.Info("countdown ended", "is_break", e.state.Timer.IsBreak)
		e.emitLocked(events.EventTimerEnded, now)
		e.scheduleFlushLocked()
	}
	if last != rem {
		e.emitLocked(events.EventState, now)
	}
	return ended, volume
}

func (e *Engine) scheduleFlushLocked() {
	if e.flusher == nil {
		return
	}
	if e.flushTimer != nil {
		e.flushTimer.Stop()
	}
	e.flushTimer = e.clock.AfterFunc(e.flushDelay, e.flusher.Flush)
}

// safeTick runs Tick and converts a panic into a logged error so the
// driver keeps running.
func (e *Engine) safeTick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
			e.logger.Error("recovered from panic in tick",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	e.Tick()
	return nil
}

// Run drives Tick every interval until ctx is done. Panics inside a tick
// are recovered and logged.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = e.safeTick()
	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			if e.flushTimer != nil {
				e.flushTimer.Stop()
				e.flushTimer = nil
			}
			e.mu.Unlock()
			return
		case <-ticker.C:
			_ = e.safeTick()
		}
	}
}
