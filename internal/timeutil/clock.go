// Package timeutil lets services take "now" as a dependency so time-window
// logic (promotions, scheduling) is testable.
package timeutil

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant. Test helper.
type FixedClock struct {
	T time.Time
}

func (f FixedClock) Now() time.Time {
	return f.T
}
