// Package clock abstracts the deferred-execution substrate used for expiry
// alarms so hosts and tests can supply their own time source.
//
// # Architecture boundaries
//
// This package owns the Clock and Timer contracts plus the wall-clock
// implementation backed by [time.AfterFunc]. Deterministic fakes live in
// internal/clocktest and are not exported.
//
// # What this package must NOT do
//
//   - Import goAccess or any sibling package.
//   - Block inside AfterFunc; callbacks always run later on the substrate.
package clock

import "time"

// Timer is a handle for a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the callback from running. It reports false when the
	// callback already started or the timer was already stopped.
	Stop() bool
}

// Clock supplies the current time and one-shot deferred callbacks.
//
// AfterFunc with d <= 0 must still run f asynchronously, on the next tick of
// the substrate, never inline.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns the wall clock. Callbacks run on their own goroutine.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	return time.AfterFunc(d, f)
}
