// Package tray shows the countdown as a filling heart in the system tray
// and exposes the timer commands as menu items.
package tray

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/npratt/cactus/internal/events"
	"github.com/npratt/cactus/internal/glyph"
	"github.com/npratt/cactus/internal/model"
)

// Surface is the part of the tray the presenter draws on.
type Surface interface {
	SetIcon(png []byte)
	SetTitle(title string)
	SetTooltip(tooltip string)
}

// Presenter renders snapshots onto a Surface. It is an events.Sink.
type Presenter struct {
	surface Surface
	logger  *slog.Logger

	mu       sync.Mutex
	opts     glyph.Options
	lastIcon []byte
	onUpdate func(model.Snapshot)
	done     chan struct{}
}

// NewPresenter creates a Presenter drawing glyphs sized by opts.
func NewPresenter(surface Surface, opts glyph.Options, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{
		surface: surface,
		opts:    opts,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// SetOptions changes the glyph size for subsequent updates.
func (p *Presenter) SetOptions(opts glyph.Options) {
	p.mu.Lock()
	p.opts = opts
	p.mu.Unlock()
}

// OnUpdate registers a hook called after each update, used by the menu to
// relabel Pause/Resume.
func (p *Presenter) OnUpdate(fn func(model.Snapshot)) {
	p.mu.Lock()
	p.onUpdate = fn
	p.mu.Unlock()
}

// Title is the tray text: whole minutes remaining, rounded down.
func Title(snap model.Snapshot) string {
	return fmt.Sprintf("%d", minutesLeft(snap))
}

// Tooltip is the hover text.
func Tooltip(snap model.Snapshot) string {
	return fmt.Sprintf("Timer: %d minutes remaining", minutesLeft(snap))
}

func minutesLeft(snap model.Snapshot) int {
	return max(0, snap.State.Timer.RemainingSeconds) / 60
}

// Update redraws the tray for snap. A render failure keeps the previous icon.
func (p *Presenter) Update(snap model.Snapshot) {
	p.mu.Lock()
	opts := p.opts
	hook := p.onUpdate
	p.mu.Unlock()

	icon, err := renderIcon(snap, opts)
	if err != nil {
		p.logger.Error("tray icon render failed", "error", err)
	} else {
		p.mu.Lock()
		p.lastIcon = icon
		p.mu.Unlock()
		p.surface.SetIcon(icon)
	}

	p.surface.SetTitle(Title(snap))
	p.surface.SetTooltip(Tooltip(snap))

	if hook != nil {
		hook(snap)
	}
}

// LastIcon returns the most recently applied icon PNG.
func (p *Presenter) LastIcon() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastIcon
}

func renderIcon(snap model.Snapshot, opts glyph.Options) ([]byte, error) {
	img, err := glyph.Render(snap.Fraction(), glyph.ThemeColor(snap.Settings.Theme), opts)
	if err != nil {
		return nil, err
	}
	return img.PNG()
}

// Start begins consuming events.
func (p *Presenter) Start(ctx context.Context, ch <-chan events.Event) error {
	go p.run(ctx, ch)
	return nil
}

func (p *Presenter) run(ctx context.Context, ch <-chan events.Event) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if te, ok := event.(*events.TimerEvent); ok {
				p.Update(te.Snapshot())
			}
		}
	}
}

// Stop waits for the run goroutine to exit.
func (p *Presenter) Stop() error {
	<-p.done
	return nil
}
