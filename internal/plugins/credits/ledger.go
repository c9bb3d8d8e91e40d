package credits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jobdeck/jobdeck/internal/apperror"
	"github.com/jobdeck/jobdeck/internal/clock"
	"github.com/jobdeck/jobdeck/internal/keymutex"
	"github.com/jobdeck/jobdeck/internal/kvstore"
	"github.com/jobdeck/jobdeck/internal/plugins/auth"
)

// guestKeyPrefix namespaces guest last-used timestamps in the key-value store.
const guestKeyPrefix = "guest:last_used:"

// Ledger answers "may this identity perform one more AI action?" and
// "consume one action", uniformly for guests and accounts.
type Ledger interface {
	// EnsureProfile creates-or-fetches the credit profile for an account.
	// Called by the auth service on every successful login; the profile is
	// created on the first one.
	EnsureProfile(ctx context.Context, userID string) (*auth.CreditSnapshot, error)

	// GetAvailable returns the identity's current quota after applying the
	// lazy reset check.
	GetAvailable(ctx context.Context, id Identity) (*Availability, error)

	// TryConsume spends one credit. Returns QuotaExceeded when none remain
	// and StoreUnavailable when the backing store rejects the write; in
	// both cases no state has changed.
	TryConsume(ctx context.Context, id Identity) (*Availability, error)

	// UpgradeTier changes an account's tier. Does not touch the current
	// credit balance; the new maximum applies from the next replenishment.
	UpgradeTier(ctx context.Context, userID string, tier Tier) error
}

// ledger implements Ledger. Consumption is a read-modify-write: a keyed
// mutex serializes it per identity within the process, and the repository's
// guarded updates catch the cross-process races a shared database allows.
type ledger struct {
	profiles    ProfileRepository
	store       kvstore.Store
	clk         clock.Clock
	rules       Rules
	broadcaster *auth.Broadcaster
	locks       keymutex.Mutex
}

// NewLedger creates a credit ledger with the given dependencies.
func NewLedger(profiles ProfileRepository, store kvstore.Store, clk clock.Clock, rules Rules, broadcaster *auth.Broadcaster) Ledger {
	return &ledger{
		profiles:    profiles,
		store:       store,
		clk:         clk,
		rules:       rules,
		broadcaster: broadcaster,
	}
}

// EnsureProfile implements the first-login profile creation, including the
// duplicate-key race: when two first logins collide, the loser re-fetches
// the row the winner created instead of failing the login.
func (l *ledger) EnsureProfile(ctx context.Context, userID string) (*auth.CreditSnapshot, error) {
	unlock := l.locks.Lock("user:" + userID)
	defer unlock()

	profile, err := l.profiles.FindByUserID(ctx, userID)
	if err == nil {
		profile, err = l.applyReset(ctx, profile)
		if err != nil {
			return nil, err
		}
		return snapshotOf(profile), nil
	}
	if !isNotFound(err) {
		return nil, apperror.NewStoreUnavailable(fmt.Errorf("loading credit profile: %w", err))
	}

	now := l.clk.Now()
	profile = &Profile{
		UserID:     userID,
		Tier:       TierFree,
		Credits:    l.rules.MaxForTier(TierFree),
		LastSeenAt: now,
		CreatedAt:  now,
	}

	if err := l.profiles.Create(ctx, profile); err != nil {
		if !isDuplicateEntry(err) {
			return nil, apperror.NewStoreUnavailable(fmt.Errorf("creating credit profile: %w", err))
		}
		// Lost the creation race -- the profile now exists, use it.
		profile, err = l.profiles.FindByUserID(ctx, userID)
		if err != nil {
			return nil, apperror.NewStoreUnavailable(fmt.Errorf("refetching credit profile: %w", err))
		}
	} else {
		slog.Info("credit profile created",
			slog.String("user_id", userID),
			slog.Int("credits", profile.Credits),
		)
	}

	return snapshotOf(profile), nil
}

// GetAvailable returns the current quota for the identity. The guest path
// takes the identity lock too: its lazy cleanup removes the stored key, and
// an unserialized removal could land after a concurrent consume wrote a
// fresh timestamp, undoing the spend.
func (l *ledger) GetAvailable(ctx context.Context, id Identity) (*Availability, error) {
	unlock := l.locks.Lock(id.lockKey())
	defer unlock()

	if id.IsGuest() {
		return l.guestAvailability(ctx, id.guestKey)
	}

	profile, err := l.loadFresh(ctx, id.userID)
	if err != nil {
		return nil, err
	}

	return &Availability{
		IdentityType: "account",
		Credits:      profile.Credits,
		ResetAt:      profile.CreditsResetAt,
	}, nil
}

// TryConsume spends one credit for the identity.
func (l *ledger) TryConsume(ctx context.Context, id Identity) (*Availability, error) {
	unlock := l.locks.Lock(id.lockKey())
	defer unlock()

	if id.IsGuest() {
		return l.consumeGuest(ctx, id.guestKey)
	}
	return l.consumeAccount(ctx, id.userID)
}

// UpgradeTier changes an account's tier.
func (l *ledger) UpgradeTier(ctx context.Context, userID string, tier Tier) error {
	if !tier.Valid() {
		return apperror.NewBadRequest("unknown tier")
	}
	if err := l.profiles.UpdateTier(ctx, userID, tier); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperror.NewStoreUnavailable(fmt.Errorf("updating tier: %w", err))
	}

	slog.Info("tier updated",
		slog.String("user_id", userID),
		slog.String("tier", string(tier)),
	)
	return nil
}

// --- Guest quota ---

// guestAvailability derives the binary guest quota from the stored
// last-used timestamp. Expired timestamps are lazily removed.
func (l *ledger) guestAvailability(ctx context.Context, guestKey string) (*Availability, error) {
	lastUsed, found, err := l.readGuestLastUsed(ctx, guestKey)
	if err != nil {
		return nil, err
	}

	avail := &Availability{IdentityType: "guest", Credits: 1}
	if !found {
		return avail, nil
	}

	now := l.clk.Now()
	if now.Sub(lastUsed) >= l.rules.GuestResetWindow {
		// Window elapsed -- the stored timestamp is dead weight, clear it.
		// A failed cleanup is harmless: the next read recomputes the same.
		if err := l.store.Remove(ctx, guestKeyPrefix+guestKey); err != nil {
			slog.Warn("failed to clear expired guest credit state",
				slog.Any("error", err),
			)
		}
		return avail, nil
	}

	resetAt := lastUsed.Add(l.rules.GuestResetWindow)
	avail.Credits = 0
	avail.ResetAt = &resetAt
	return avail, nil
}

// consumeGuest spends the guest's single credit by storing the consumption
// timestamp. The key carries a TTL of the reset window so Redis clears it
// on schedule, but availability never relies on that: the lazy check above
// is authoritative.
func (l *ledger) consumeGuest(ctx context.Context, guestKey string) (*Availability, error) {
	avail, err := l.guestAvailability(ctx, guestKey)
	if err != nil {
		return nil, err
	}
	if avail.Credits == 0 {
		return nil, apperror.NewQuotaExceeded("no free analyses remaining")
	}

	now := l.clk.Now()
	value := strconv.FormatInt(now.Unix(), 10)
	if err := l.store.Set(ctx, guestKeyPrefix+guestKey, value, l.rules.GuestResetWindow); err != nil {
		// The write did not land, so the credit was not spent.
		return nil, apperror.NewStoreUnavailable(err)
	}

	resetAt := now.Add(l.rules.GuestResetWindow)
	return &Availability{IdentityType: "guest", Credits: 0, ResetAt: &resetAt}, nil
}

// readGuestLastUsed parses the stored guest timestamp. An unparseable value
// is treated as absent after a cleanup attempt.
func (l *ledger) readGuestLastUsed(ctx context.Context, guestKey string) (time.Time, bool, error) {
	value, found, err := l.store.Get(ctx, guestKeyPrefix+guestKey)
	if err != nil {
		return time.Time{}, false, apperror.NewStoreUnavailable(err)
	}
	if !found {
		return time.Time{}, false, nil
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		slog.Warn("malformed guest credit timestamp, discarding",
			slog.String("value", value),
		)
		_ = l.store.Remove(ctx, guestKeyPrefix+guestKey)
		return time.Time{}, false, nil
	}
	return time.Unix(unix, 0).UTC(), true, nil
}

// --- Account quota ---

// consumeAccount decrements an account's credits through the repository's
// compare-and-swap. A CAS miss means another writer got between our read
// and write; the whole read-modify-write is retried once before giving up.
func (l *ledger) consumeAccount(ctx context.Context, userID string) (*Availability, error) {
	for attempt := 0; attempt < 2; attempt++ {
		profile, err := l.loadFresh(ctx, userID)
		if err != nil {
			return nil, err
		}

		if profile.Credits == 0 {
			return nil, apperror.NewQuotaExceeded("no credits remaining")
		}

		now := l.clk.Now()
		next := profile.Credits - 1
		var resetAt *time.Time
		if next == 0 {
			// The deadline is stamped at the consumption that exhausts the
			// quota, never preemptively.
			t := now.Add(l.rules.AccountResetWindow)
			resetAt = &t
		}

		ok, err := l.profiles.UpdateCreditsCAS(ctx, userID, profile.Credits, next, resetAt)
		if err != nil {
			return nil, apperror.NewStoreUnavailable(err)
		}
		if !ok {
			continue
		}

		l.broadcaster.UpdateCredits(userID, auth.CreditSnapshot{
			Tier:           string(profile.Tier),
			Credits:        next,
			CreditsResetAt: resetAt,
		})

		return &Availability{IdentityType: "account", Credits: next, ResetAt: resetAt}, nil
	}

	// Two straight CAS misses under the per-identity lock means another
	// process is hammering this profile. Surface it rather than loop.
	return nil, apperror.NewConflict("credit balance changed concurrently, please retry")
}

// loadFresh fetches the profile and applies the lazy reset check. Invoked
// before every account read and consume; replenishment has no other driver.
func (l *ledger) loadFresh(ctx context.Context, userID string) (*Profile, error) {
	profile, err := l.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			// Sessions outlive profile rows only if the row was removed
			// out-of-band; recreate rather than strand the account.
			snapshot, err := l.ensureLocked(ctx, userID)
			if err != nil {
				return nil, err
			}
			return &Profile{
				UserID:         userID,
				Tier:           Tier(snapshot.Tier),
				Credits:        snapshot.Credits,
				CreditsResetAt: snapshot.CreditsResetAt,
			}, nil
		}
		return nil, apperror.NewStoreUnavailable(fmt.Errorf("loading credit profile: %w", err))
	}

	return l.applyReset(ctx, profile)
}

// applyReset runs the pure reset recomputation and persists its outcome.
func (l *ledger) applyReset(ctx context.Context, profile *Profile) (*Profile, error) {
	fresh, replenished := l.rules.CheckAndReset(*profile, l.clk.Now())

	if replenished {
		ok, err := l.profiles.Replenish(ctx, profile.UserID, fresh.Credits)
		if err != nil {
			return nil, apperror.NewStoreUnavailable(err)
		}
		if !ok {
			// Another process replenished (or consumed) first; trust the store.
			current, err := l.profiles.FindByUserID(ctx, profile.UserID)
			if err != nil {
				return nil, apperror.NewStoreUnavailable(fmt.Errorf("refetching credit profile: %w", err))
			}
			return current, nil
		}

		slog.Info("credits replenished",
			slog.String("user_id", profile.UserID),
			slog.Int("credits", fresh.Credits),
		)
		l.broadcaster.UpdateCredits(profile.UserID, auth.CreditSnapshot{
			Tier:    string(fresh.Tier),
			Credits: fresh.Credits,
		})
	}

	// LastSeenAt is non-quota bookkeeping: fire-and-forget.
	if err := l.profiles.UpdateLastSeen(ctx, profile.UserID); err != nil {
		slog.Warn("failed to update last seen",
			slog.String("user_id", profile.UserID),
			slog.Any("error", err),
		)
	}

	return &fresh, nil
}

// ensureLocked is EnsureProfile's body without re-taking the identity lock.
func (l *ledger) ensureLocked(ctx context.Context, userID string) (*auth.CreditSnapshot, error) {
	now := l.clk.Now()
	profile := &Profile{
		UserID:     userID,
		Tier:       TierFree,
		Credits:    l.rules.MaxForTier(TierFree),
		LastSeenAt: now,
		CreatedAt:  now,
	}

	if err := l.profiles.Create(ctx, profile); err != nil {
		if !isDuplicateEntry(err) {
			return nil, apperror.NewStoreUnavailable(fmt.Errorf("creating credit profile: %w", err))
		}
		profile, err = l.profiles.FindByUserID(ctx, userID)
		if err != nil {
			return nil, apperror.NewStoreUnavailable(fmt.Errorf("refetching credit profile: %w", err))
		}
	}

	return snapshotOf(profile), nil
}

// snapshotOf converts a profile to the broadcast snapshot shape.
func snapshotOf(p *Profile) *auth.CreditSnapshot {
	return &auth.CreditSnapshot{
		Tier:           string(p.Tier),
		Credits:        p.Credits,
		CreditsResetAt: p.CreditsResetAt,
	}
}

// isNotFound reports whether err is an apperror with the not_found type.
func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Type == "not_found"
}
