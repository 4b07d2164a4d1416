package tray

import (
	"context"
	"log/slog"

	"github.com/npratt/cactus/internal/exec"
	"github.com/npratt/cactus/internal/model"
)

// Action is a tray menu entry.
type Action int

// Menu actions in display order.
const (
	ActionStartWork Action = iota
	ActionStartBreak
	ActionTogglePause
	ActionAddMinute
	ActionAddFive
	ActionSubMinute
	ActionStop
	ActionOpenData
	ActionQuit
)

// Commands is the controller surface the menu drives.
type Commands interface {
	StartWork() model.Snapshot
	StartBreak() model.Snapshot
	TogglePause() model.Snapshot
	Extend(seconds int) model.Snapshot
	Stop() model.Snapshot
}

// Item describes one menu entry.
type Item struct {
	Action  Action
	Title   string
	Tooltip string
}

// Items lists the menu entries in display order.
var Items = []Item{
	{ActionStartWork, "Start Work", "Start a work session"},
	{ActionStartBreak, "Start Break", "Start a break"},
	{ActionTogglePause, "Pause", "Pause or resume the countdown"},
	{ActionAddMinute, "+1 min", "Add one minute"},
	{ActionAddFive, "+5 min", "Add five minutes"},
	{ActionSubMinute, "−1 min", "Remove one minute"},
	{ActionStop, "Stop", "Stop the countdown"},
	{ActionOpenData, "Open Data Folder", "Show state and logs"},
	{ActionQuit, "Quit", "Quit cactus"},
}

// PauseLabel is the Pause/Resume item title for snap.
func PauseLabel(snap model.Snapshot) string {
	if snap.State.Timer.Running {
		return "Pause"
	}
	return "Resume"
}

// Dispatcher turns menu clicks into commands.
type Dispatcher struct {
	Commands Commands
	Runner   exec.CommandRunner
	DataDir  string
	Quit     func()
	Logger   *slog.Logger
}

// Dispatch performs a.
func (d *Dispatcher) Dispatch(ctx context.Context, a Action) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch a {
	case ActionStartWork:
		d.Commands.StartWork()
	case ActionStartBreak:
		d.Commands.StartBreak()
	case ActionTogglePause:
		d.Commands.TogglePause()
	case ActionAddMinute:
		d.Commands.Extend(60)
	case ActionAddFive:
		d.Commands.Extend(300)
	case ActionSubMinute:
		d.Commands.Extend(-60)
	case ActionStop:
		d.Commands.Stop()
	case ActionOpenData:
		if d.Runner == nil {
			return
		}
		if err := exec.Open(ctx, d.Runner, d.DataDir); err != nil {
			logger.Warn("open data folder failed", "error", err)
		}
	case ActionQuit:
		if d.Quit != nil {
			d.Quit()
		}
	default:
		logger.Warn("unknown tray action", "action", int(a))
	}
}
