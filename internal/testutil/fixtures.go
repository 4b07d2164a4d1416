package testutil

import (
	"time"

	"github.com/npratt/cactus/internal/model"
)

// Epoch is a fixed instant used as "now" across fixtures.
var Epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// RunningWork returns a work run started at Epoch-elapsed with the default
// 30 minute duration.
func RunningWork(elapsed time.Duration) model.Snapshot {
	snap := model.DefaultSnapshot()
	initial := 30 * 60
	end := Epoch.Add(time.Duration(initial)*time.Second - elapsed)
	snap.State.Timer = model.TimerState{
		Running:          true,
		RemainingSeconds: initial - int(elapsed/time.Second),
		EndTimestamp:     end.UnixMilli(),
		InitialSeconds:   initial,
	}
	return snap
}

// PausedBreak returns a break paused with remaining seconds left.
func PausedBreak(remaining int) model.Snapshot {
	snap := model.DefaultSnapshot()
	snap.State.Timer = model.TimerState{
		IsBreak:          true,
		RemainingSeconds: remaining,
		InitialSeconds:   3 * 60,
	}
	return snap
}

// EndedWork returns a work run that ended naturally at Epoch.
func EndedWork() model.Snapshot {
	snap := model.DefaultSnapshot()
	snap.State.Timer = model.TimerState{InitialSeconds: 30 * 60}
	snap.State.LastEnded = &model.LastEnded{IsBreak: false, EndedAt: Epoch.UnixMilli()}
	return snap
}

// RunningStateJSON is an on-disk document with a running work timer and
// custom settings.
const RunningStateJSON = `{
  "settings": {
    "theme": "pink",
    "acceptableHourRange": 6,
    "durations": {"workMinutes": 25, "breakMinutes": 5},
    "soundVolume": 60
  },
  "state": {
    "timer": {
      "running": true,
      "isBreak": false,
      "remainingSeconds": 1200,
      "endTimestamp": 1772356800000,
      "initialSeconds": 1500
    },
    "lastEnded": null
  }
}`

// CorruptStateJSON fails to parse.
const CorruptStateJSON = `{"settings": {"theme": `
