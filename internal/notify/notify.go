// Package notify posts a desktop notification when a countdown ends.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gen2brain/beeep"

	"github.com/npratt/cactus/internal/events"
	"github.com/npratt/cactus/internal/model"
)

// Func posts one notification.
type Func func(title, message string, icon any) error

// Notifier is an events.Sink that reacts to timer-ended events.
type Notifier struct {
	post    Func
	logger  *slog.Logger
	enabled atomic.Bool
	done    chan struct{}
}

// New creates a Notifier that posts through beeep.
func New(enabled bool, logger *slog.Logger) *Notifier {
	return NewWithFunc(beeep.Notify, enabled, logger)
}

// NewWithFunc creates a Notifier that posts through post.
func NewWithFunc(post Func, enabled bool, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		post:   post,
		logger: logger,
		done:   make(chan struct{}),
	}
	n.enabled.Store(enabled)
	return n
}

// SetEnabled toggles notifications at runtime.
func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

// Start begins consuming events.
func (n *Notifier) Start(ctx context.Context, ch <-chan events.Event) error {
	go n.run(ctx, ch)
	return nil
}

func (n *Notifier) run(ctx context.Context, ch <-chan events.Event) {
	defer close(n.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			n.handle(event)
		}
	}
}

func (n *Notifier) handle(event events.Event) {
	if event.Type() != events.EventTimerEnded || !n.enabled.Load() {
		return
	}
	te, ok := event.(*events.TimerEvent)
	if !ok {
		return
	}
	title, message := Message(te.Snapshot())
	if err := n.post(title, message, ""); err != nil {
		n.logger.Warn("desktop notification failed", "error", err)
		return
	}
	n.logger.Debug("notification posted", "title", title)
}

// Stop waits for the run goroutine to exit.
func (n *Notifier) Stop() error {
	<-n.done
	return nil
}

// Message returns the notification text for a countdown that just ended.
func Message(snap model.Snapshot) (title, message string) {
	d := snap.Settings.Durations
	if snap.State.Timer.IsBreak {
		return "Break over", fmt.Sprintf("Ready for another %s of work?", minutes(d.WorkMinutes))
	}
	return "Work session complete", fmt.Sprintf("Take a %s break.", minutes(d.BreakMinutes))
}

func minutes(m float64) string {
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%g minutes", m)
}
