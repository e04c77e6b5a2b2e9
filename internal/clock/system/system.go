// Package system provides the clocks the pipeline reads run and slice
// timestamps from.
package system

import "time"

// Clock reads the wall clock in UTC.
type Clock struct{}

// New creates a Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a clock stopped at one instant. Replays and tests use it so event
// timestamps and durations are reproducible.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time {
	return time.Time(f)
}
