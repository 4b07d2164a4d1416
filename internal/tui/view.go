package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/cactus/internal/model"
)

// View implements tea.Model.
func (m dashboard) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("cactus"))
	b.WriteString("\n\n")

	switch {
	case !m.hasSnap && m.err != nil:
		b.WriteString(styles.Error.Render(m.err.Error()))
		b.WriteString("\n")
	case !m.hasSnap:
		b.WriteString(styles.PhaseIdle.Render("connecting…"))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderTimer())
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(styles.Error.Render(m.err.Error()))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(styles.Footer.Render(m.help.View(m.keys)))
	return styles.Container.Render(b.String())
}

func (m dashboard) renderTimer() string {
	snap := m.snap
	lines := []string{
		phaseStyle(snap.State.Phase()).Render(PhaseLabel(snap)),
		"",
		styles.Clock.Render(FormatClock(snap.State.Timer.RemainingSeconds)),
		"",
		m.progress.ViewAs(snap.Fraction()),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func phaseStyle(p model.Phase) lipgloss.Style {
	switch p {
	case model.PhaseRunning:
		return styles.PhaseRunning
	case model.PhasePaused:
		return styles.PhasePaused
	case model.PhaseEnded:
		return styles.PhaseEnded
	default:
		return styles.PhaseIdle
	}
}
