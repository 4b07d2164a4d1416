package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/cactus/internal/model"
)

// stateMsg carries the result of an RPC call.
type stateMsg struct {
	snap model.Snapshot
	err  error
}

// tickMsg triggers a poll.
type tickMsg time.Time

// call runs fn off the UI goroutine and reports its snapshot.
func call(fn func() (model.Snapshot, error)) tea.Cmd {
	return func() tea.Msg {
		snap, err := fn()
		return stateMsg{snap: snap, err: err}
	}
}

func (m dashboard) doTick() tea.Cmd {
	return tea.Tick(m.pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m dashboard) Init() tea.Cmd {
	return tea.Batch(call(m.client.GetState), m.doTick())
}

// Update implements tea.Model.
func (m dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = min(maxBarWidth, max(10, msg.Width-8))
		return m, nil

	case stateMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.applySnapshot(msg.snap)
		return m, nil

	case tickMsg:
		return m, tea.Batch(call(m.client.GetState), m.doTick())
	}
	return m, nil
}

func (m dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.client
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Work):
		return m, call(c.StartWork)
	case key.Matches(msg, m.keys.Break):
		return m, call(c.StartBreak)
	case key.Matches(msg, m.keys.Pause):
		if m.snap.State.Timer.Running {
			return m, call(c.Pause)
		}
		return m, call(c.Resume)
	case key.Matches(msg, m.keys.Stop):
		return m, call(c.Stop)
	case key.Matches(msg, m.keys.Extend):
		return m, call(func() (model.Snapshot, error) { return c.Extend(60) })
	case key.Matches(msg, m.keys.Reduce):
		return m, call(func() (model.Snapshot, error) { return c.Extend(-60) })
	}
	return m, nil
}
