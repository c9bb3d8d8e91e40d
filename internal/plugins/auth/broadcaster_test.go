package auth

import (
	"testing"
)

func TestSubscribeReplaysLatestState(t *testing.T) {
	b := NewBroadcaster()
	b.SetAccount(&Account{UserID: "user-1", Credits: 5})
	b.SetAccount(&Account{UserID: "user-2", Credits: 3})
	b.SetAccount(&Account{UserID: "user-3", Credits: 1})

	var got []AuthState
	b.Subscribe(func(state AuthState) {
		got = append(got, state)
	})

	if len(got) != 1 {
		t.Fatalf("expected immediate replay, got %d calls", len(got))
	}
	// The latest state, not the first.
	if got[0].Account == nil || got[0].Account.UserID != "user-3" {
		t.Errorf("late subscriber must see the latest state, got %+v", got[0])
	}
	if !got[0].Initialized {
		t.Error("replayed state must be initialized")
	}
}

func TestInitialStateIsSignedOut(t *testing.T) {
	b := NewBroadcaster()

	var got AuthState
	b.Subscribe(func(state AuthState) { got = state })

	if got.Account != nil {
		t.Error("initial state must have no account")
	}
	if !got.Initialized || got.Loading {
		t.Errorf("initial state must be initialized and not loading, got %+v", got)
	}
}

func TestPublishNotifiesInRegistrationOrder(t *testing.T) {
	b := NewBroadcaster()

	var order []string
	b.Subscribe(func(state AuthState) {
		if state.Account != nil {
			order = append(order, "first")
		}
	})
	b.Subscribe(func(state AuthState) {
		if state.Account != nil {
			order = append(order, "second")
		}
	})

	b.SetAccount(&Account{UserID: "user-1"})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected [first second], got %v", order)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	b := NewBroadcaster()

	calls := 0
	unsubscribe := b.Subscribe(func(state AuthState) { calls++ })
	unsubscribe()

	b.SetAccount(&Account{UserID: "user-1"})

	if calls != 1 {
		t.Errorf("expected only the replay call, got %d", calls)
	}
}

func TestSubscribeDuringPublishDoesNotJoinInFlightRound(t *testing.T) {
	b := NewBroadcaster()

	lateCalls := 0
	b.Subscribe(func(state AuthState) {
		if state.Account != nil {
			// Subscribing mid-notification must not add the newcomer to
			// the round that is already underway.
			b.Subscribe(func(AuthState) { lateCalls++ })
		}
	})

	b.SetAccount(&Account{UserID: "user-1"})

	// One call: the newcomer's own replay.
	if lateCalls != 1 {
		t.Errorf("expected 1 replay call for mid-publish subscriber, got %d", lateCalls)
	}
}

func TestUpdateCreditsRefreshesMatchingAccount(t *testing.T) {
	b := NewBroadcaster()
	b.SetAccount(&Account{UserID: "user-1", Tier: "free", Credits: 5})

	b.UpdateCredits("user-1", CreditSnapshot{Tier: "free", Credits: 4})

	state := b.Current()
	if state.Account == nil || state.Account.Credits != 4 {
		t.Errorf("expected credits 4 after update, got %+v", state.Account)
	}
}

func TestUpdateCreditsIgnoresOtherAccounts(t *testing.T) {
	b := NewBroadcaster()
	b.SetAccount(&Account{UserID: "user-1", Credits: 5})

	notified := 0
	b.Subscribe(func(state AuthState) { notified++ })

	b.UpdateCredits("user-2", CreditSnapshot{Credits: 0})

	state := b.Current()
	if state.Account.UserID != "user-1" || state.Account.Credits != 5 {
		t.Errorf("another account's mutation must not touch the state, got %+v", state.Account)
	}
	if notified != 1 {
		t.Errorf("mismatched update must not publish, got %d notifications", notified)
	}
}

func TestUpdateCreditsWhileSignedOutIsNoOp(t *testing.T) {
	b := NewBroadcaster()

	b.UpdateCredits("user-1", CreditSnapshot{Credits: 3})

	if b.Current().Account != nil {
		t.Error("credit update while signed out must not create an account")
	}
}
