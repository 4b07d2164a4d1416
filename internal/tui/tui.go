// Package tui provides a terminal dashboard for the cactus daemon using
// bubbletea. It is a pure client of the RPC command surface.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/cactus/internal/model"
)

// DefaultPollInterval is how often the dashboard refreshes from the daemon.
const DefaultPollInterval = time.Second

// Client is the subset of the daemon client the dashboard uses.
type Client interface {
	GetState() (model.Snapshot, error)
	StartWork() (model.Snapshot, error)
	StartBreak() (model.Snapshot, error)
	Stop() (model.Snapshot, error)
	Pause() (model.Snapshot, error)
	Resume() (model.Snapshot, error)
	Extend(seconds int) (model.Snapshot, error)
}

// TUI is the terminal dashboard.
type TUI struct {
	client       Client
	pollInterval time.Duration
	onQuit       func()
	altScreen    bool
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a dashboard backed by client.
func New(client Client, opts ...Option) *TUI {
	t := &TUI{
		client:       client,
		pollInterval: DefaultPollInterval,
		altScreen:    true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithPollInterval sets the refresh interval.
func WithPollInterval(d time.Duration) Option {
	return func(t *TUI) {
		if d > 0 {
			t.pollInterval = d
		}
	}
}

// WithOnQuit sets the callback invoked when the user quits.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// WithAltScreen toggles the alternate screen buffer.
func WithAltScreen(on bool) Option {
	return func(t *TUI) {
		t.altScreen = on
	}
}

// Run starts the TUI and blocks until it exits.
func (t *TUI) Run() error {
	m := newDashboard(t.client, t.pollInterval, t.onQuit)

	var popts []tea.ProgramOption
	if t.altScreen {
		popts = append(popts, tea.WithAltScreen())
	}
	_, err := tea.NewProgram(m, popts...).Run()
	return err
}
