package admin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jobdeck/jobdeck/internal/clock"
	"github.com/jobdeck/jobdeck/internal/keymutex"
	"github.com/jobdeck/jobdeck/internal/kvstore"
)

// Key prefixes for lockout state. The natural key is the client ID, so one
// locked-out visitor never blocks another.
const (
	attemptsKeyPrefix = "admin:attempts:"
	lockoutKeyPrefix  = "admin:lockout:"
)

// LockoutGuard tracks failed gate attempts per client and locks the gate
// after too many. The state machine has two states, open and locked, both
// persisted in the key-value store so they survive restarts. No TTLs and
// no timers: lockout expiry is re-derived from the stored deadline on
// every read, which keeps the attempt counter and the lockout deadline
// from expiring independently of each other.
//
// Every method is a read-modify-write against the store, serialized per
// client by a keyed mutex. Without it, parallel failed attempts can read
// the same count and lose an increment, granting extra guesses.
type LockoutGuard struct {
	store       kvstore.Store
	clk         clock.Clock
	maxAttempts int
	duration    time.Duration
	locks       keymutex.Mutex
}

// NewLockoutGuard creates a guard with the given policy.
func NewLockoutGuard(store kvstore.Store, clk clock.Clock, maxAttempts int, duration time.Duration) *LockoutGuard {
	return &LockoutGuard{
		store:       store,
		clk:         clk,
		maxAttempts: maxAttempts,
		duration:    duration,
	}
}

// IsLocked reports whether the client is currently locked out and, if so,
// how long remains. A deadline in the past transitions the client back to
// open: both the lockout key and the attempt counter are cleared, so the
// client restarts with a full allowance.
func (g *LockoutGuard) IsLocked(ctx context.Context, clientID string) (bool, time.Duration, error) {
	unlock := g.locks.Lock(clientID)
	defer unlock()
	return g.isLockedLocked(ctx, clientID)
}

// isLockedLocked is IsLocked's body, callers must hold the client's lock.
func (g *LockoutGuard) isLockedLocked(ctx context.Context, clientID string) (bool, time.Duration, error) {
	value, found, err := g.store.Get(ctx, lockoutKeyPrefix+clientID)
	if err != nil {
		return false, 0, fmt.Errorf("reading lockout state: %w", err)
	}
	if !found {
		return false, 0, nil
	}

	deadline, err := parseUnix(value)
	if err != nil {
		// Unreadable state fails open after cleanup; a corrupt value must
		// not lock a client out forever.
		g.clear(ctx, clientID)
		return false, 0, nil
	}

	now := g.clk.Now()
	if !now.Before(deadline) {
		if err := g.clear(ctx, clientID); err != nil {
			return false, 0, err
		}
		return false, 0, nil
	}

	return true, deadline.Sub(now), nil
}

// RecordFailure counts a failed attempt and reports whether it tripped the
// lockout. When the threshold is reached the lockout deadline is written
// and the counter is left in place; both are cleared together when the
// lockout expires or the client later succeeds.
func (g *LockoutGuard) RecordFailure(ctx context.Context, clientID string) (lockedOut bool, err error) {
	unlock := g.locks.Lock(clientID)
	defer unlock()

	attempts, err := g.attempts(ctx, clientID)
	if err != nil {
		return false, err
	}

	attempts++
	if err := g.store.Set(ctx, attemptsKeyPrefix+clientID, strconv.Itoa(attempts), 0); err != nil {
		return false, fmt.Errorf("writing attempt count: %w", err)
	}

	if attempts < g.maxAttempts {
		return false, nil
	}

	deadline := g.clk.Now().Add(g.duration)
	if err := g.store.Set(ctx, lockoutKeyPrefix+clientID, strconv.FormatInt(deadline.Unix(), 10), 0); err != nil {
		return false, fmt.Errorf("writing lockout deadline: %w", err)
	}
	return true, nil
}

// RecordSuccess resets the client to a clean open state.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, clientID string) error {
	unlock := g.locks.Lock(clientID)
	defer unlock()
	return g.clear(ctx, clientID)
}

// RemainingAttempts returns how many failures the client has left before
// lockout. Never negative.
func (g *LockoutGuard) RemainingAttempts(ctx context.Context, clientID string) (int, error) {
	unlock := g.locks.Lock(clientID)
	defer unlock()

	attempts, err := g.attempts(ctx, clientID)
	if err != nil {
		return 0, err
	}
	remaining := g.maxAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// TimeRemaining returns the time left on an active lockout, zero when the
// client is open. Callers polling for a countdown recompute from this on
// every call rather than caching it.
func (g *LockoutGuard) TimeRemaining(ctx context.Context, clientID string) (time.Duration, error) {
	locked, remaining, err := g.IsLocked(ctx, clientID)
	if err != nil || !locked {
		return 0, err
	}
	return remaining, nil
}

// attempts reads the client's failure count, zero when absent or unreadable.
func (g *LockoutGuard) attempts(ctx context.Context, clientID string) (int, error) {
	value, found, err := g.store.Get(ctx, attemptsKeyPrefix+clientID)
	if err != nil {
		return 0, fmt.Errorf("reading attempt count: %w", err)
	}
	if !found {
		return 0, nil
	}
	attempts, err := strconv.Atoi(value)
	if err != nil {
		return 0, nil
	}
	return attempts, nil
}

// clear removes both lockout keys for the client.
func (g *LockoutGuard) clear(ctx context.Context, clientID string) error {
	if err := g.store.Remove(ctx, lockoutKeyPrefix+clientID); err != nil {
		return fmt.Errorf("clearing lockout deadline: %w", err)
	}
	if err := g.store.Remove(ctx, attemptsKeyPrefix+clientID); err != nil {
		return fmt.Errorf("clearing attempt count: %w", err)
	}
	return nil
}

// parseUnix parses a stored unix-seconds timestamp.
func parseUnix(value string) (time.Time, error) {
	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0).UTC(), nil
}
