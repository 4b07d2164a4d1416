package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"

	"github.com/npratt/cactus/internal/glyph"
	"github.com/npratt/cactus/internal/model"
)

// dashboard is the bubbletea model for the dashboard.
type dashboard struct {
	client       Client
	pollInterval time.Duration
	onQuit       func()

	snap    model.Snapshot
	hasSnap bool
	err     error
	theme   string

	keys     keyMap
	help     help.Model
	progress progress.Model

	width  int
	height int
}

func newDashboard(client Client, pollInterval time.Duration, onQuit func()) dashboard {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return dashboard{
		client:       client,
		pollInterval: pollInterval,
		onQuit:       onQuit,
		theme:        glyph.DefaultTheme,
		keys:         defaultKeyMap(),
		help:         help.New(),
		progress:     newProgress(glyph.DefaultTheme, defaultBarWidth),
	}
}

const (
	defaultBarWidth = 40
	maxBarWidth     = 60
)

func newProgress(theme string, width int) progress.Model {
	p := glyph.Theme(theme)
	bar := progress.New(
		progress.WithGradient(p.Accent, p.Primary),
		progress.WithoutPercentage(),
	)
	bar.Width = width
	return bar
}

// applySnapshot stores snap and restyles the bar when the theme changes.
func (m *dashboard) applySnapshot(snap model.Snapshot) {
	m.snap = snap
	m.hasSnap = true
	m.err = nil
	if snap.Settings.Theme != m.theme {
		m.theme = snap.Settings.Theme
		m.progress = newProgress(m.theme, m.progress.Width)
	}
}
