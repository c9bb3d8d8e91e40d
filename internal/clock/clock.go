// Package clock abstracts wall-clock time so every timer comparison in the
// credit, lockout, and activation code paths can be driven by a fake clock
// in tests. All durations in Jobdeck (credit reset windows, lockout expiry,
// activation timeouts) are wall-clock, not monotonic, so they shift with
// clock adjustments. That is an accepted limitation of the design, not a
// bug to fix silently.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current wall-clock time. No component owns real time;
// everything that compares against a stored deadline takes a Clock.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock.
type System struct{}

// Now returns time.Now in UTC.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fake is a manually-advanced clock for tests. Safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a fake clock frozen at the given instant.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now returns the fake clock's current instant.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set jumps the fake clock to the given instant.
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}
