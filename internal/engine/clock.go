package engine

import "time"

// Clock supplies wall-clock time for result and artifact timestamps.
// Nothing in the engine orders events by wall time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
