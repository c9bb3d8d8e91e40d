package kvstore

import (
	"context"
	"sync"
	"time"

	"github.com/jobdeck/jobdeck/internal/clock"
)

// Memory implements Store with an in-process map. Used in tests and as a
// single-node fallback when Redis is not configured. TTLs are evaluated
// lazily against the injected clock on read, matching the lazy-expiry
// discipline of the rest of the subsystem.
type Memory struct {
	clk clock.Clock

	mu      sync.Mutex
	entries map[string]memoryEntry

	// FailWrites makes Set and Remove return an error. Tests use it to
	// exercise the store-unavailable paths.
	FailWrites error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemory creates an in-memory store driven by the given clock.
func NewMemory(clk clock.Clock) *Memory {
	return &Memory{clk: clk, entries: make(map[string]memoryEntry)}
}

// Get retrieves the value for key, lazily dropping expired entries.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !m.clk.Now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set writes the value for key with the given ttl (zero = no expiry).
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.clk.Now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

// Remove deletes the key.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}

	delete(m.entries, key)
	return nil
}
