package core

import "time"

// Clock supplies "now" to anything that classifies or timestamps credits.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// Today is the clock's current calendar date.
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}
