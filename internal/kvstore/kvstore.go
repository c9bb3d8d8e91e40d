// Package kvstore defines the durable key-value store contract used for
// guest credit state, admin lockout state, activation flags, and the admin
// session flag. The store offers plain get/set/remove by key with no
// transaction guarantees -- callers that need read-modify-write atomicity
// serialize per identity above this layer.
package kvstore

import (
	"context"
	"time"
)

// Store is the durable key-value contract. Implementations must return
// (value, true, nil) for a present key, ("", false, nil) for an absent key,
// and a non-nil error only for infrastructure faults. Every fault is
// surfaced to the caller; a failed write means the operation did not happen.
type Store interface {
	// Get retrieves the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set writes the value for key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Remove deletes the key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
