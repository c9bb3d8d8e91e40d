// Package keymutex provides per-key mutual exclusion for read-modify-write
// sequences against shared stores. The credit ledger and the admin lockout
// guard both serialize on an identity key so concurrent requests for the
// same identity never interleave a read with another request's write.
package keymutex

import "sync"

// Mutex serializes callers per key. Entries are reference-counted and
// dropped when released, so the map does not grow with the key population.
// The zero value is ready to use.
type Mutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the mutex for key and returns its release function.
func (m *Mutex) Lock(key string) (unlock func()) {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[string]*keyLock)
	}
	entry := m.locks[key]
	if entry == nil {
		entry = &keyLock{}
		m.locks[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		m.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}
