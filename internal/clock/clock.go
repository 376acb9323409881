// Package clock abstracts wall time behind a small interface so that every
// time-dependent rule in the engine (trading-time checks, time-to-close,
// signal IDs, evaluator rules) can be made deterministic in tests by
// swapping in a frozen or shifted clock.
package clock

import (
	"sync"
	"time"
)

// ChinaTZ is the A-share market timezone (UTC+8, no DST).
var ChinaTZ = time.FixedZone("CST", 8*60*60)

// Clock provides the current time, optionally converted to a location.
type Clock interface {
	// Now returns the current time. A nil location means local time.
	Now(loc *time.Location) time.Time
}

// SystemClock delegates to the OS wall clock. The default process-wide clock.
type SystemClock struct{}

// Now returns the system time, converted to loc when given.
func (SystemClock) Now(loc *time.Location) time.Time {
	if loc != nil {
		return time.Now().In(loc)
	}
	return time.Now()
}

// FrozenClock always returns a fixed instant, ignoring the requested
// location. The caller is responsible for constructing the instant in the
// timezone the code under test expects.
type FrozenClock struct {
	t time.Time
}

// NewFrozen creates a clock frozen at t.
func NewFrozen(t time.Time) *FrozenClock {
	return &FrozenClock{t: t}
}

// Now returns the frozen instant verbatim.
func (c *FrozenClock) Now(_ *time.Location) time.Time {
	return c.t
}

// ShiftClock returns the base clock's time plus a mutable offset.
type ShiftClock struct {
	base   Clock
	mu     sync.RWMutex
	offset time.Duration
}

// NewShift creates a clock that shifts base by offset.
func NewShift(base Clock, offset time.Duration) *ShiftClock {
	return &ShiftClock{base: base, offset: offset}
}

// Now returns the base time plus the current offset.
func (c *ShiftClock) Now(loc *time.Location) time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.Now(loc).Add(c.offset)
}

// SetOffset replaces the offset.
func (c *ShiftClock) SetOffset(offset time.Duration) {
	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()
}

// Offset returns the current offset.
func (c *ShiftClock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Process-wide clock slot. Set at startup and once more per test; reads are
// cheap but this is not a hot path, components that need determinism should
// take a Clock in their constructor and fall back to Get() only when nil.
var (
	slotMu sync.RWMutex
	active Clock = SystemClock{}
)

// Get returns the active process-wide clock.
func Get() Clock {
	slotMu.RLock()
	defer slotMu.RUnlock()
	return active
}

// Set installs c as the process-wide clock. Tests must restore via Reset
// in their teardown.
func Set(c Clock) {
	slotMu.Lock()
	active = c
	slotMu.Unlock()
}

// Reset restores the process-wide clock to the system clock.
func Reset() {
	Set(SystemClock{})
}

// Now is a convenience for Get().Now(loc).
func Now(loc *time.Location) time.Time {
	return Get().Now(loc)
}

// NowChina returns the current time in the A-share market timezone.
func NowChina() time.Time {
	return Now(ChinaTZ)
}
