// Package model defines the settings and timer state shared by the engine,
// the persistence layer, and every notification consumer.
package model

import "math"

// Durations holds the default run lengths in minutes.
type Durations struct {
	WorkMinutes  float64 `json:"workMinutes"`
	BreakMinutes float64 `json:"breakMinutes"`
}

// Settings are the user-editable preferences stored alongside the timer state.
type Settings struct {
	Theme               string    `json:"theme"`
	AcceptableHourRange int       `json:"acceptableHourRange"`
	Durations           Durations `json:"durations"`
	SoundVolume         int       `json:"soundVolume"` // 0-100
}

// TimerState is the countdown state owned by the timer engine.
//
// While Running, EndTimestamp is authoritative and RemainingSeconds is a
// cache refreshed every tick. Otherwise RemainingSeconds is authoritative and
// EndTimestamp is 0.
type TimerState struct {
	Running          bool  `json:"running"`
	IsBreak          bool  `json:"isBreak"`
	RemainingSeconds int   `json:"remainingSeconds"`
	EndTimestamp     int64 `json:"endTimestamp"` // unix milliseconds, 0 when not running
	InitialSeconds   int   `json:"initialSeconds"`
}

// LastEnded records the most recent natural end of a countdown.
type LastEnded struct {
	IsBreak bool  `json:"isBreak"`
	EndedAt int64 `json:"endedAt"` // unix milliseconds
}

// State is the persisted runtime state.
type State struct {
	Timer     TimerState `json:"timer"`
	LastEnded *LastEnded `json:"lastEnded"`
}

// Snapshot is the {settings, state} document. It is both the on-disk format
// and the payload of every notification and command response.
type Snapshot struct {
	Settings Settings `json:"settings"`
	State    State    `json:"state"`
}

// DefaultSettings returns the settings used when nothing is stored yet.
func DefaultSettings() Settings {
	return Settings{
		Theme:               "neutral",
		AcceptableHourRange: 6,
		Durations: Durations{
			WorkMinutes:  30,
			BreakMinutes: 3,
		},
		SoundVolume: 100,
	}
}

// DefaultState returns a stopped timer with nothing remaining.
func DefaultState() State {
	return State{}
}

// DefaultSnapshot returns the document written when no file exists.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Settings: DefaultSettings(),
		State:    DefaultState(),
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	if s.LastEnded != nil {
		le := *s.LastEnded
		out.LastEnded = &le
	}
	return out
}

// Phase is the user-visible state of the timer.
type Phase string

// Timer phases.
const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhasePaused  Phase = "paused"
	PhaseEnded   Phase = "ended"
)

// Phase derives the timer phase from the state.
func (s State) Phase() Phase {
	switch {
	case s.Timer.Running:
		return PhaseRunning
	case s.LastEnded != nil:
		return PhaseEnded
	case s.Timer.RemainingSeconds > 0:
		return PhasePaused
	default:
		return PhaseIdle
	}
}

// Fraction returns the elapsed fraction of a run in [0,1].
// An initial duration of zero yields 0.
func Fraction(remainingSeconds, initialSeconds int) float64 {
	if initialSeconds <= 0 {
		return 0
	}
	f := 1 - float64(remainingSeconds)/float64(initialSeconds)
	return math.Max(0, math.Min(1, f))
}

// Fraction returns the elapsed fraction for the snapshot's timer.
func (s Snapshot) Fraction() float64 {
	return Fraction(s.State.Timer.RemainingSeconds, s.State.Timer.InitialSeconds)
}

// MinutesFloor converts seconds to whole minutes, never negative.
func MinutesFloor(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return seconds / 60
}

// VolumeFraction converts the 0-100 volume setting to 0..1.
func (s Settings) VolumeFraction() float64 {
	return math.Max(0, math.Min(1, float64(s.SoundVolume)/100))
}

// DurationSeconds returns the configured run length for the given mode.
func (s Settings) DurationSeconds(isBreak bool) int {
	minutes := s.Durations.WorkMinutes
	if isBreak {
		minutes = s.Durations.BreakMinutes
	}
	return int(math.Max(0, math.Floor(minutes*60)))
}
