package testutil

import (
	"sync"
	"time"
)

// Epoch is the default instant for FixedClock and SteppingClock.
var Epoch = time.Date(2026, time.January, 10, 21, 30, 0, 0, time.UTC)

// FixedClock always reports the same instant.
//
// This keeps result timestamps and artifact file names byte-identical across
// test runs, which golden snapshots depend on.
//
// Thread-safety: FixedClock is immutable and safe for concurrent use.
type FixedClock struct {
	at time.Time
}

// NewFixedClock creates a clock frozen at at. A zero at means Epoch.
func NewFixedClock(at time.Time) *FixedClock {
	if at.IsZero() {
		at = Epoch
	}
	return &FixedClock{at: at.UTC()}
}

// Now returns the frozen instant.
func (c *FixedClock) Now() time.Time {
	return c.at
}

// SteppingClock advances by a fixed step on every Now call.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewSteppingClock creates a clock whose first Now returns start
// (Epoch when zero) and each later call returns step more.
func NewSteppingClock(start time.Time, step time.Duration) *SteppingClock {
	if start.IsZero() {
		start = Epoch
	}
	return &SteppingClock{next: start.UTC(), step: step}
}

// Now returns the current instant and advances the clock.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// Reset moves the clock back to start.
func (c *SteppingClock) Reset(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = start.UTC()
}
