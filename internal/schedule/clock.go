// Package schedule bounds how often a callback runs.
//
// Throttle runs the first call of a quiet period immediately and coalesces
// later calls into one trailing call per interval. Debounce runs only after a
// quiet period. Both read time through a Clock so tests can drive them with a
// fake clock instead of sleeping.
package schedule

import "time"

// Clock is the time source used by the scheduling primitives.
//
// Implemented by RealClock (production) and testutil.FakeClock (tests).
type Clock interface {
	Now() time.Time
	// AfterFunc calls f on its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from running. It returns false if the call has
	// already run or been stopped.
	Stop() bool
}

type realClock struct{}

// RealClock returns a Clock backed by package time.
//
// Thread-safety: stateless and safe for concurrent use.
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
