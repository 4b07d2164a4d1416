package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"

	"github.com/npratt/cactus/internal/model"
)

// systraySurface draws on the process-wide systray.
type systraySurface struct{}

func (systraySurface) SetIcon(png []byte)        { systray.SetIcon(png) }
func (systraySurface) SetTitle(title string)     { systray.SetTitle(title) }
func (systraySurface) SetTooltip(tooltip string) { systray.SetTooltip(tooltip) }

// SystemSurface returns the Surface backed by the OS tray.
func SystemSurface() Surface {
	return systraySurface{}
}

// Host owns the systray event loop.
type Host struct {
	presenter  *Presenter
	dispatcher *Dispatcher
	initial    model.Snapshot

	mu        sync.Mutex
	pauseItem *systray.MenuItem
}

// NewHost wires a presenter and dispatcher to the OS tray.
func NewHost(presenter *Presenter, dispatcher *Dispatcher, initial model.Snapshot) *Host {
	return &Host{presenter: presenter, dispatcher: dispatcher, initial: initial}
}

// Run blocks on the tray event loop and must be called from the main
// goroutine. onStart runs once the tray is ready; onExit runs after Quit.
func (h *Host) Run(ctx context.Context, onStart, onExit func()) {
	systray.Run(func() { h.onReady(ctx, onStart) }, onExit)
}

// Quit ends the tray event loop.
func (h *Host) Quit() {
	systray.Quit()
}

func (h *Host) onReady(ctx context.Context, onStart func()) {
	clicks := make(map[Action]*systray.MenuItem, len(Items))
	for _, it := range Items {
		switch it.Action {
		case ActionAddMinute, ActionStop, ActionOpenData:
			systray.AddSeparator()
		}
		clicks[it.Action] = systray.AddMenuItem(it.Title, it.Tooltip)
	}

	h.mu.Lock()
	h.pauseItem = clicks[ActionTogglePause]
	h.mu.Unlock()
	h.presenter.OnUpdate(h.relabel)
	h.presenter.Update(h.initial)

	if onStart != nil {
		onStart()
	}

	for action, item := range clicks {
		go h.forward(ctx, action, item)
	}
}

func (h *Host) forward(ctx context.Context, a Action, item *systray.MenuItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-item.ClickedCh:
			h.dispatcher.Dispatch(ctx, a)
		}
	}
}

func (h *Host) relabel(snap model.Snapshot) {
	h.mu.Lock()
	item := h.pauseItem
	h.mu.Unlock()
	if item != nil {
		item.SetTitle(PauseLabel(snap))
	}
}
