package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/npratt/cactus/internal/model"
)

// StateBufferSize is the recommended buffer size for state sink subscriptions.
const StateBufferSize = 1000

// DefaultMinSaveDelay is the minimum time between debounced saves.
const DefaultMinSaveDelay = 5 * time.Second

// DefaultAutosaveInterval is how often the latest snapshot is rewritten
// while the daemon runs, so a crash loses at most this much countdown.
const DefaultAutosaveInterval = 2 * time.Minute

// Saver writes a snapshot to durable storage.
type Saver interface {
	Save(snap model.Snapshot) error
}

// StateSink persists the most recent snapshot carried by timer events.
// Save failures are logged and retried on the next trigger; in-memory
// state is never rolled back.
type StateSink struct {
	saver    Saver
	logger   *slog.Logger
	latest   model.Snapshot
	hasState bool
	dirty    bool
	mu       sync.Mutex
	saveMu   sync.Mutex
	done     chan struct{}
	lastSave time.Time
	minDelay time.Duration
	autosave time.Duration
	pending  *time.Timer
}

// NewStateSink creates a StateSink that writes through saver.
func NewStateSink(saver Saver, logger *slog.Logger) *StateSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateSink{
		saver:    saver,
		logger:   logger,
		done:     make(chan struct{}),
		minDelay: DefaultMinSaveDelay,
		autosave: DefaultAutosaveInterval,
	}
}

// Start begins processing events. It returns immediately.
func (s *StateSink) Start(ctx context.Context, events <-chan Event) error {
	go s.run(ctx, events)
	return nil
}

func (s *StateSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	var tick <-chan time.Time
	s.mu.Lock()
	interval := s.autosave
	s.mu.Unlock()
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.flushIfDirty()
			return
		case event, ok := <-events:
			if !ok {
				s.flushIfDirty()
				return
			}
			s.handleEvent(event)
		case <-tick:
			s.logger.Debug("autosave")
			s.Flush()
		}
	}
}

func (s *StateSink) handleEvent(event Event) {
	te, ok := event.(*TimerEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	s.latest = te.Snapshot()
	s.hasState = true
	s.dirty = true

	wait := s.minDelay - time.Since(s.lastSave)
	if wait <= 0 {
		s.mu.Unlock()
		s.flushIfDirty()
		return
	}
	if s.pending == nil {
		s.pending = time.AfterFunc(wait, s.flushPending)
	}
	s.mu.Unlock()
}

func (s *StateSink) flushPending() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	s.flushIfDirty()
}

func (s *StateSink) flushIfDirty() {
	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()
	if dirty {
		s.Flush()
	}
}

// Flush writes the latest known snapshot immediately.
func (s *StateSink) Flush() {
	s.mu.Lock()
	if !s.hasState {
		s.mu.Unlock()
		return
	}
	snap := s.latest
	s.mu.Unlock()

	s.write(snap)
}

// Persist records snap as the latest state and writes it synchronously.
// Used for the final save on shutdown and for explicit flush requests.
func (s *StateSink) Persist(snap model.Snapshot) {
	s.mu.Lock()
	s.latest = snap
	s.hasState = true
	s.dirty = true
	s.mu.Unlock()

	s.write(snap)
}

func (s *StateSink) write(snap model.Snapshot) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.saver.Save(snap); err != nil {
		s.logger.Error("state save failed", "error", err)
		return
	}

	s.mu.Lock()
	// A newer snapshot may have arrived while writing.
	if sameSnapshot(s.latest, snap) {
		s.dirty = false
	}
	s.lastSave = time.Now()
	s.mu.Unlock()
}

// sameSnapshot compares two snapshots field by field, including the
// LastEnded value behind its pointer.
func sameSnapshot(a, b model.Snapshot) bool {
	if a.Settings != b.Settings || a.State.Timer != b.State.Timer {
		return false
	}
	la, lb := a.State.LastEnded, b.State.LastEnded
	if la == nil || lb == nil {
		return la == lb
	}
	return *la == *lb
}

// Stop waits for the run goroutine to finish and cancels any pending save.
func (s *StateSink) Stop() error {
	<-s.done
	s.mu.Lock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.mu.Unlock()
	return nil
}

// Latest returns the most recent snapshot and whether one has been seen.
func (s *StateSink) Latest() (model.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasState
}

// Dirty reports whether a change is waiting to be written.
func (s *StateSink) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SetMinDelay sets the minimum delay between debounced saves.
func (s *StateSink) SetMinDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minDelay = d
}

// SetAutosaveInterval sets the periodic save interval. Zero disables it.
// Must be called before Start.
func (s *StateSink) SetAutosaveInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autosave = d
}
