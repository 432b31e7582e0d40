// Package testutil holds deterministic clocks and id generators for tests.
package testutil

import (
	"sync"
	"time"
)

// StepClock provides a thread-safe deterministic wall clock for tests.
//
// Each call to Now returns the current instant and then advances it by the
// configured step, so successive snapshots always get strictly increasing
// lastModified values. A zero step freezes the clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	step  time.Duration
}

// NewStepClock creates a clock at start that advances by step per read.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start, now: start, step: step}
}

// NewStepClockMillis creates a clock at the given ms-since-epoch instant.
func NewStepClockMillis(startMillis int64, step time.Duration) *StepClock {
	return NewStepClock(time.UnixMilli(startMillis).UTC(), step)
}

// Now returns the current instant and advances the clock by one step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Current returns the instant the next Now call will return, without advancing.
func (c *StepClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d without a read.
func (c *StepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Reset returns the clock to its start instant.
//
// Used for test reuse. After Reset(), the next call to Now() returns start.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
