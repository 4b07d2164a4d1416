// Package clock abstracts wall-clock time so countdown behavior can be
// driven deterministically in tests.
package clock

import "time"

// Timer represents a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock provides time-related operations.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// System is the Clock backed by the standard library.
var System Clock = systemClock{}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (systemClock) Now() time.Time {
	return time.Now()
}
