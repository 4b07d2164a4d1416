package tui

import (
	"fmt"

	"github.com/npratt/cactus/internal/model"
)

// FormatClock renders seconds as mm:ss. Minutes are not wrapped into hours.
func FormatClock(seconds int) string {
	seconds = max(0, seconds)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// PhaseLabel describes what the timer is doing.
func PhaseLabel(snap model.Snapshot) string {
	mode := "Work"
	if snap.State.Timer.IsBreak {
		mode = "Break"
	}
	switch snap.State.Phase() {
	case model.PhaseRunning:
		return mode + " · running"
	case model.PhasePaused:
		return mode + " · paused"
	case model.PhaseEnded:
		if snap.State.LastEnded.IsBreak {
			return "Break over"
		}
		return "Work session complete"
	default:
		return "Idle"
	}
}
