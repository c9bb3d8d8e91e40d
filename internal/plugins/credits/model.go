// Package credits implements the Jobdeck credit ledger: how many
// AI-assisted actions (resume analysis, resume rebuild) an identity may
// still perform, and when an exhausted quota replenishes.
//
// Two kinds of identity exist. A guest -- an anonymous visitor identified
// only by a client cookie -- has a binary quota of one credit backed by a
// single key-value timestamp. An account has a durable credit profile row
// with a tier-dependent quota. Replenishment is lazy in both cases: there
// is no background timer, every quota boundary is re-derived from the
// stored deadline at read time. That keeps the ledger correct under
// arbitrary process restarts at the cost of funneling every read and
// consume through the reset check.
package credits

import (
	"time"
)

// Tier determines how many credits an account replenishes to.
type Tier string

const (
	// TierFree is the default tier for new profiles.
	TierFree Tier = "free"

	// TierPremium is the paid tier.
	TierPremium Tier = "premium"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPremium
}

// Profile is an account's credit standing, one row per user. Created on
// first successful authentication, never deleted by this subsystem.
type Profile struct {
	UserID string `json:"user_id"`
	Tier   Tier   `json:"tier"`

	// Credits is the available-action count, always >= 0.
	Credits int `json:"credits"`

	// CreditsResetAt is non-nil exactly when Credits reached 0 by
	// consumption. It is never set preemptively while credits remain.
	CreditsResetAt *time.Time `json:"credits_reset_at,omitempty"`

	// LastSeenAt is bookkeeping only; it never affects the quota.
	LastSeenAt time.Time `json:"last_seen_at"`

	CreatedAt time.Time `json:"created_at"`
}

// Rules holds the quota parameters: reset windows and per-tier maxima.
// All methods are pure functions of their inputs.
type Rules struct {
	GuestResetWindow   time.Duration
	AccountResetWindow time.Duration
	FreeCredits        int
	PremiumCredits     int
}

// MaxForTier returns the replenishment amount for a tier. Unknown tiers
// fall back to the free amount.
func (r Rules) MaxForTier(tier Tier) int {
	if tier == TierPremium {
		return r.PremiumCredits
	}
	return r.FreeCredits
}

// CheckAndReset recomputes a profile against now. If the profile was
// exhausted and its reset deadline has passed, the returned copy has the
// tier maximum restored and the deadline cleared, and replenished is true.
// Otherwise the profile is returned unchanged apart from the LastSeenAt
// bookkeeping refresh. Idempotent: applying it twice with the same now
// changes nothing the second time.
func (r Rules) CheckAndReset(p Profile, now time.Time) (_ Profile, replenished bool) {
	p.LastSeenAt = now
	if p.Credits == 0 && p.CreditsResetAt != nil && now.After(*p.CreditsResetAt) {
		p.Credits = r.MaxForTier(p.Tier)
		p.CreditsResetAt = nil
		return p, true
	}
	return p, false
}

// Availability is the quota answer for one identity: how many actions
// remain and, when exhausted, when the quota replenishes. ResetAt is a
// stored deadline; the countdown text is a pure recomputation from it and
// may be polled at any cadence.
type Availability struct {
	// IdentityType is "guest" or "account".
	IdentityType string `json:"identity_type"`

	Credits int        `json:"credits"`
	ResetAt *time.Time `json:"reset_at,omitempty"`
}

// Identity names whose quota an operation applies to: an authenticated
// account or an anonymous guest, never both.
type Identity struct {
	userID   string
	guestKey string
}

// Account builds the identity for an authenticated user.
func Account(userID string) Identity {
	return Identity{userID: userID}
}

// Guest builds the identity for an anonymous visitor key.
func Guest(key string) Identity {
	return Identity{guestKey: key}
}

// IsGuest reports whether the identity is anonymous.
func (id Identity) IsGuest() bool {
	return id.userID == ""
}

// lockKey is the per-identity mutual-exclusion key.
func (id Identity) lockKey() string {
	if id.IsGuest() {
		return "guest:" + id.guestKey
	}
	return "user:" + id.userID
}
