package tui

import "github.com/charmbracelet/lipgloss"

// styles contains all lipgloss styles used by the TUI.
var styles = struct {
	Container lipgloss.Style
	Title     lipgloss.Style
	Clock     lipgloss.Style
	Footer    lipgloss.Style
	Error     lipgloss.Style

	PhaseIdle    lipgloss.Style
	PhaseRunning lipgloss.Style
	PhasePaused  lipgloss.Style
	PhaseEnded   lipgloss.Style
}{
	Container: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(1, 2),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("114")),

	Clock: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255")),

	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),

	PhaseIdle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	PhaseRunning: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42")),

	PhasePaused: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220")),

	PhaseEnded: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")),
}
