// Package controller owns the timer engine and the current settings and
// exposes the command surface shared by the tray, the RPC server, and the
// terminal dashboard.
package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/npratt/cactus/internal/clock"
	"github.com/npratt/cactus/internal/events"
	"github.com/npratt/cactus/internal/model"
	"github.com/npratt/cactus/internal/timer"
)

// Persister writes a snapshot synchronously. events.StateSink implements it.
type Persister interface {
	Persist(snap model.Snapshot)
}

// Options holds the controller's collaborators. Zero values are valid:
// the system clock is used and events and persistence are skipped.
type Options struct {
	Clock         clock.Clock
	Router        *events.Router
	Sink          Persister
	Sound         timer.EndSound
	TickInterval  time.Duration
	EndFlushDelay time.Duration
	Logger        *slog.Logger
}

// Controller serializes commands onto the engine. Every command returns
// the latest snapshot so callers can render without a second round trip.
type Controller struct {
	engine       *timer.Engine
	router       *events.Router
	sink         Persister
	logger       *slog.Logger
	tickInterval time.Duration

	settings   model.Settings
	settingsMu sync.RWMutex

	running bool
	runMu   sync.Mutex
}

// New creates a Controller seeded with the loaded document.
func New(initial model.Snapshot, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		router:       opts.Router,
		sink:         opts.Sink,
		logger:       logger,
		tickInterval: opts.TickInterval,
		settings:     initial.Settings,
	}

	cfg := timer.Config{
		Clock:         opts.Clock,
		Settings:      c,
		Flusher:       c,
		Sound:         opts.Sound,
		EndFlushDelay: opts.EndFlushDelay,
		Logger:        logger.With("component", "timer"),
		Initial:       initial.State,
	}
	if opts.Router != nil {
		cfg.Emitter = opts.Router
	}
	c.engine = timer.New(cfg)
	return c
}

// Settings returns the current settings.
func (c *Controller) Settings() model.Settings {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return c.settings
}

// Flush persists the current snapshot.
func (c *Controller) Flush() {
	if c.sink == nil {
		return
	}
	c.sink.Persist(c.engine.Snapshot())
}

// GetState returns the current snapshot.
func (c *Controller) GetState() model.Snapshot {
	return c.engine.Snapshot()
}

// StartWork starts a work countdown.
func (c *Controller) StartWork() model.Snapshot {
	c.logger.Info("start work")
	c.engine.Start(false)
	return c.engine.Snapshot()
}

// StartBreak starts a break countdown.
func (c *Controller) StartBreak() model.Snapshot {
	c.logger.Info("start break")
	c.engine.Start(true)
	return c.engine.Snapshot()
}

// Stop halts the countdown.
func (c *Controller) Stop() model.Snapshot {
	c.logger.Info("stop")
	c.engine.Stop()
	return c.engine.Snapshot()
}

// Pause freezes a running countdown.
func (c *Controller) Pause() model.Snapshot {
	c.engine.Pause()
	return c.engine.Snapshot()
}

// Resume continues a paused countdown.
func (c *Controller) Resume() model.Snapshot {
	c.engine.Resume()
	return c.engine.Snapshot()
}

// TogglePause pauses a running countdown or resumes a paused one.
func (c *Controller) TogglePause() model.Snapshot {
	if c.engine.State().Timer.Running {
		return c.Pause()
	}
	return c.Resume()
}

// Extend adds seconds to the countdown. Negative values shorten it.
func (c *Controller) Extend(seconds int) model.Snapshot {
	c.engine.Extend(seconds)
	return c.engine.Snapshot()
}

// SaveSettings merges a partial settings document, notifies subscribers,
// and persists immediately. Invalid input leaves settings unchanged.
func (c *Controller) SaveSettings(partial json.RawMessage) (model.Snapshot, error) {
	c.settingsMu.Lock()
	next, err := c.settings.Merge(partial)
	if err != nil {
		c.settingsMu.Unlock()
		return c.engine.Snapshot(), fmt.Errorf("save settings: %w", err)
	}
	c.settings = next
	c.settingsMu.Unlock()

	c.logger.Info("settings saved",
		"theme", next.Theme,
		"work_minutes", next.Durations.WorkMinutes,
		"break_minutes", next.Durations.BreakMinutes,
		"volume", next.SoundVolume)

	c.engine.Notify()
	c.Flush()
	return c.engine.Snapshot(), nil
}

// Tick advances the engine once. The Run loop calls this every interval;
// it is exported for hosts that drive time themselves.
func (c *Controller) Tick() bool {
	return c.engine.Tick()
}

// Run drives the engine until ctx is done, then performs one final save.
func (c *Controller) Run(ctx context.Context) error {
	c.runMu.Lock()
	if c.running {
		c.runMu.Unlock()
		return fmt.Errorf("controller already running")
	}
	c.running = true
	c.runMu.Unlock()

	defer func() {
		c.runMu.Lock()
		c.running = false
		c.runMu.Unlock()
	}()

	c.logger.Info("timer driver started", "phase", c.engine.State().Phase())
	c.engine.Run(ctx, c.tickInterval)

	c.Flush()
	c.logger.Info("timer driver stopped")
	return nil
}
