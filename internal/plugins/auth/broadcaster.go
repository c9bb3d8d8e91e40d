package auth

import (
	"sync"
)

// Subscriber receives every published AuthState. Callbacks run synchronously
// on the publishing goroutine, in registration order.
type Subscriber func(AuthState)

// Broadcaster holds the canonical AuthState and notifies subscribers on
// change. It is an explicit instance owned by the application root and
// injected into consumers -- never a package-level global. Constructed once
// at startup, torn down with the process, no cross-process sharing.
type Broadcaster struct {
	mu          sync.Mutex
	state       AuthState
	subscribers []*subscription
	nextID      int
}

type subscription struct {
	id int
	fn Subscriber
}

// NewBroadcaster creates a broadcaster whose initial state is resolved:
// no account, not loading, initialized.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		state: AuthState{Initialized: true},
	}
}

// Current returns the canonical state.
func (b *Broadcaster) Current() AuthState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Subscribe registers a callback and immediately invokes it once with the
// current state, so a late subscriber never sees a stale "no state yet".
// The returned function removes the callback from the set.
func (b *Broadcaster) Subscribe(fn Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	sub := &subscription{id: b.nextID, fn: fn}
	b.nextID++
	b.subscribers = append(b.subscribers, sub)
	current := b.state
	b.mu.Unlock()

	// Replay outside the lock so the callback may publish or subscribe.
	fn(current)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subscribers {
			if s.id == sub.id {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Publish replaces the canonical state and invokes every currently-registered
// callback synchronously with the new state. Iteration runs over a snapshot
// of the subscriber set, so callbacks may subscribe or unsubscribe without
// affecting the in-flight notification round.
func (b *Broadcaster) Publish(state AuthState) {
	b.mu.Lock()
	b.state = state
	snapshot := make([]*subscription, len(b.subscribers))
	copy(snapshot, b.subscribers)
	b.mu.Unlock()

	for _, sub := range snapshot {
		sub.fn(state)
	}
}

// SetAccount publishes a signed-in state for the given account.
func (b *Broadcaster) SetAccount(account *Account) {
	b.Publish(AuthState{Account: account, Initialized: true})
}

// Clear publishes the signed-out state.
func (b *Broadcaster) Clear() {
	b.Publish(AuthState{Initialized: true})
}

// UpdateCredits refreshes the credit fields of the current account and
// republishes. A mismatched or absent account is a no-op: the ledger may
// mutate profiles for identities that are not the session owner.
func (b *Broadcaster) UpdateCredits(userID string, snapshot CreditSnapshot) {
	b.mu.Lock()
	if b.state.Account == nil || b.state.Account.UserID != userID {
		b.mu.Unlock()
		return
	}
	account := *b.state.Account
	account.Tier = snapshot.Tier
	account.Credits = snapshot.Credits
	account.CreditsResetAt = snapshot.CreditsResetAt
	b.mu.Unlock()

	b.SetAccount(&account)
}
