package credits

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/jobdeck/jobdeck/internal/apperror"
	"github.com/jobdeck/jobdeck/internal/clock"
	"github.com/jobdeck/jobdeck/internal/kvstore"
	"github.com/jobdeck/jobdeck/internal/plugins/auth"
)

// --- Mock Repository ---

// mockProfileRepo implements ProfileRepository for testing. By default it
// acts as a single-row in-memory store so multi-step flows (consume,
// exhaust, replenish) work without wiring every function field; individual
// fields override behavior per test.
type mockProfileRepo struct {
	mu      sync.Mutex
	profile *Profile

	createFn       func(ctx context.Context, profile *Profile) error
	findByUserIDFn func(ctx context.Context, userID string) (*Profile, error)
	updateCASFn    func(ctx context.Context, userID string, expected, next int, resetAt *time.Time) (bool, error)
	replenishFn    func(ctx context.Context, userID string, credits int) (bool, error)
	updateSeenFn   func(ctx context.Context, userID string) error
	updateTierFn   func(ctx context.Context, userID string, tier Tier) error
}

func (m *mockProfileRepo) Create(ctx context.Context, profile *Profile) error {
	if m.createFn != nil {
		return m.createFn(ctx, profile)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile != nil && m.profile.UserID == profile.UserID {
		return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	}
	clone := *profile
	m.profile = &clone
	return nil
}

func (m *mockProfileRepo) FindByUserID(ctx context.Context, userID string) (*Profile, error) {
	if m.findByUserIDFn != nil {
		return m.findByUserIDFn(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil || m.profile.UserID != userID {
		return nil, apperror.NewNotFound("credit profile not found")
	}
	clone := *m.profile
	return &clone, nil
}

func (m *mockProfileRepo) UpdateCreditsCAS(ctx context.Context, userID string, expected, next int, resetAt *time.Time) (bool, error) {
	if m.updateCASFn != nil {
		return m.updateCASFn(ctx, userID, expected, next, resetAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil || m.profile.UserID != userID || m.profile.Credits != expected {
		return false, nil
	}
	m.profile.Credits = next
	m.profile.CreditsResetAt = resetAt
	return true, nil
}

func (m *mockProfileRepo) Replenish(ctx context.Context, userID string, credits int) (bool, error) {
	if m.replenishFn != nil {
		return m.replenishFn(ctx, userID, credits)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil || m.profile.UserID != userID || m.profile.Credits != 0 || m.profile.CreditsResetAt == nil {
		return false, nil
	}
	m.profile.Credits = credits
	m.profile.CreditsResetAt = nil
	return true, nil
}

func (m *mockProfileRepo) UpdateLastSeen(ctx context.Context, userID string) error {
	if m.updateSeenFn != nil {
		return m.updateSeenFn(ctx, userID)
	}
	return nil
}

func (m *mockProfileRepo) UpdateTier(ctx context.Context, userID string, tier Tier) error {
	if m.updateTierFn != nil {
		return m.updateTierFn(ctx, userID, tier)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil || m.profile.UserID != userID {
		return apperror.NewNotFound("credit profile not found")
	}
	m.profile.Tier = tier
	return nil
}

// --- Helpers ---

var testRules = Rules{
	GuestResetWindow:   3 * time.Hour,
	AccountResetWindow: 3 * time.Hour,
	FreeCredits:        5,
	PremiumCredits:     50,
}

func newTestLedger(repo ProfileRepository, store kvstore.Store, clk clock.Clock) Ledger {
	return NewLedger(repo, store, clk, testRules, auth.NewBroadcaster())
}

func assertAppError(t *testing.T, err error, wantType string, wantCode int) {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Type != wantType {
		t.Errorf("expected error type %q, got %q", wantType, appErr.Type)
	}
	if appErr.Code != wantCode {
		t.Errorf("expected status %d, got %d", wantCode, appErr.Code)
	}
}

// --- Guest quota ---

func TestGuestConsumeThenExhausted(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := kvstore.NewMemory(clk)
	ledger := newTestLedger(&mockProfileRepo{}, store, clk)
	ctx := context.Background()

	avail, err := ledger.GetAvailable(ctx, Guest("visitor-1"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 1 || avail.ResetAt != nil {
		t.Fatalf("fresh guest should have 1 credit and no deadline, got %+v", avail)
	}

	avail, err = ledger.TryConsume(ctx, Guest("visitor-1"))
	if err != nil {
		t.Fatalf("TryConsume failed: %v", err)
	}
	if avail.Credits != 0 {
		t.Errorf("expected 0 credits after consume, got %d", avail.Credits)
	}
	wantReset := clk.Now().Add(3 * time.Hour)
	if avail.ResetAt == nil || !avail.ResetAt.Equal(wantReset) {
		t.Errorf("expected reset at %v, got %v", wantReset, avail.ResetAt)
	}

	_, err = ledger.TryConsume(ctx, Guest("visitor-1"))
	assertAppError(t, err, "quota_exceeded", 429)
}

func TestGuestQuotaResetsAfterWindow(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := kvstore.NewMemory(clk)
	ledger := newTestLedger(&mockProfileRepo{}, store, clk)
	ctx := context.Background()

	if _, err := ledger.TryConsume(ctx, Guest("visitor-1")); err != nil {
		t.Fatalf("TryConsume failed: %v", err)
	}

	// One second shy of the window: still exhausted.
	clk.Advance(3*time.Hour - time.Second)
	avail, err := ledger.GetAvailable(ctx, Guest("visitor-1"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 0 {
		t.Errorf("expected 0 credits before window elapses, got %d", avail.Credits)
	}

	clk.Advance(time.Second)
	avail, err = ledger.GetAvailable(ctx, Guest("visitor-1"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 1 || avail.ResetAt != nil {
		t.Errorf("expected quota restored after window, got %+v", avail)
	}

	// And the credit is spendable again.
	if _, err := ledger.TryConsume(ctx, Guest("visitor-1")); err != nil {
		t.Errorf("consume after reset failed: %v", err)
	}
}

// stalledRemoveStore delays the first key removal. It forces the stale
// cleanup that a read of an expired timestamp performs to land late, which
// would hand a just-spent credit back if reads did not hold the identity
// lock for the whole read-and-cleanup sequence.
type stalledRemoveStore struct {
	kvstore.Store

	once    sync.Once
	entered chan struct{}
}

func (s *stalledRemoveStore) Remove(ctx context.Context, key string) error {
	s.once.Do(func() {
		close(s.entered)
		time.Sleep(100 * time.Millisecond)
	})
	return s.Store.Remove(ctx, key)
}

// Set drops the TTL: the lazy-cleanup branch under test is only reachable
// when the expired timestamp is still present on read, and the memory
// store's own TTL expiry would remove it first.
func (s *stalledRemoveStore) Set(ctx context.Context, key, value string, _ time.Duration) error {
	return s.Store.Set(ctx, key, value, 0)
}

func TestGuestReadCleanupCannotUndoConcurrentConsume(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := &stalledRemoveStore{Store: kvstore.NewMemory(clk), entered: make(chan struct{})}
	ledger := newTestLedger(&mockProfileRepo{}, store, clk)
	ctx := context.Background()

	// Spend the credit, then let the window elapse so the next read finds
	// an expired timestamp to clean up.
	if _, err := ledger.TryConsume(ctx, Guest("visitor-1")); err != nil {
		t.Fatalf("TryConsume failed: %v", err)
	}
	clk.Advance(3 * time.Hour)

	readDone := make(chan error, 1)
	go func() {
		_, err := ledger.GetAvailable(ctx, Guest("visitor-1"))
		readDone <- err
	}()
	select {
	case <-store.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("lazy cleanup Remove was never reached")
	}

	// Start a consume while the reader is still mid-cleanup. It must wait
	// for the reader; its fresh timestamp may never be removed by the
	// reader's stale cleanup.
	consumeDone := make(chan error, 1)
	go func() {
		_, err := ledger.TryConsume(ctx, Guest("visitor-1"))
		consumeDone <- err
	}()

	if err := <-readDone; err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if err := <-consumeDone; err != nil {
		t.Fatalf("TryConsume failed: %v", err)
	}

	avail, err := ledger.GetAvailable(ctx, Guest("visitor-1"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 0 {
		t.Errorf("expected 0 credits right after a consume, got %d", avail.Credits)
	}
}

func TestGuestsAreIndependent(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := kvstore.NewMemory(clk)
	ledger := newTestLedger(&mockProfileRepo{}, store, clk)
	ctx := context.Background()

	if _, err := ledger.TryConsume(ctx, Guest("visitor-1")); err != nil {
		t.Fatalf("TryConsume failed: %v", err)
	}

	avail, err := ledger.GetAvailable(ctx, Guest("visitor-2"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 1 {
		t.Errorf("visitor-2 should be unaffected by visitor-1, got %d credits", avail.Credits)
	}
}

func TestGuestConsumeStoreDownNoSpend(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := kvstore.NewMemory(clk)
	store.FailWrites = errors.New("connection refused")
	ledger := newTestLedger(&mockProfileRepo{}, store, clk)
	ctx := context.Background()

	_, err := ledger.TryConsume(ctx, Guest("visitor-1"))
	assertAppError(t, err, "store_unavailable", 503)

	// The failed write must not have spent the credit.
	store.FailWrites = nil
	avail, err := ledger.GetAvailable(ctx, Guest("visitor-1"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 1 {
		t.Errorf("credit should survive a failed consume, got %d", avail.Credits)
	}
}

func TestGuestMalformedTimestampTreatedAsFresh(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := kvstore.NewMemory(clk)
	ledger := newTestLedger(&mockProfileRepo{}, store, clk)
	ctx := context.Background()

	if err := store.Set(ctx, guestKeyPrefix+"visitor-1", "not-a-number", 0); err != nil {
		t.Fatalf("seeding store failed: %v", err)
	}

	avail, err := ledger.GetAvailable(ctx, Guest("visitor-1"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 1 {
		t.Errorf("malformed state should read as full quota, got %d", avail.Credits)
	}
}

// --- Account profile creation ---

func TestEnsureProfileCreatesOnFirstLogin(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := &mockProfileRepo{}
	ledger := newTestLedger(repo, kvstore.NewMemory(clk), clk)

	snapshot, err := ledger.EnsureProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EnsureProfile failed: %v", err)
	}
	if snapshot.Tier != "free" {
		t.Errorf("expected free tier, got %q", snapshot.Tier)
	}
	if snapshot.Credits != 5 {
		t.Errorf("expected 5 starting credits, got %d", snapshot.Credits)
	}

	// Second login reuses the row and leaves the balance alone.
	repo.mu.Lock()
	repo.profile.Credits = 2
	repo.mu.Unlock()

	snapshot, err = ledger.EnsureProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EnsureProfile failed: %v", err)
	}
	if snapshot.Credits != 2 {
		t.Errorf("second login must not reset credits, got %d", snapshot.Credits)
	}
}

func TestEnsureProfileDuplicateKeyRace(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	existing := &Profile{UserID: "user-1", Tier: TierPremium, Credits: 42}
	calls := 0
	repo := &mockProfileRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Profile, error) {
			calls++
			if calls == 1 {
				// First lookup misses; the racing login inserts in between.
				return nil, apperror.NewNotFound("credit profile not found")
			}
			clone := *existing
			return &clone, nil
		},
		createFn: func(ctx context.Context, profile *Profile) error {
			return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
		},
	}
	ledger := newTestLedger(repo, kvstore.NewMemory(clk), clk)

	snapshot, err := ledger.EnsureProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EnsureProfile should recover from the duplicate key: %v", err)
	}
	if snapshot.Credits != 42 || snapshot.Tier != "premium" {
		t.Errorf("expected the winner's row, got %+v", snapshot)
	}
}

func TestEnsureProfileStoreError(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := &mockProfileRepo{
		createFn: func(ctx context.Context, profile *Profile) error {
			return errors.New("connection reset")
		},
	}
	ledger := newTestLedger(repo, kvstore.NewMemory(clk), clk)

	_, err := ledger.EnsureProfile(context.Background(), "user-1")
	assertAppError(t, err, "store_unavailable", 503)
}

// --- Account consumption ---

func TestAccountConsumeToExhaustion(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := &mockProfileRepo{profile: &Profile{UserID: "user-1", Tier: TierFree, Credits: 2}}
	ledger := newTestLedger(repo, kvstore.NewMemory(clk), clk)
	ctx := context.Background()

	avail, err := ledger.TryConsume(ctx, Account("user-1"))
	if err != nil {
		t.Fatalf("TryConsume failed: %v", err)
	}
	if avail.Credits != 1 {
		t.Errorf("expected 1 credit left, got %d", avail.Credits)
	}
	if avail.ResetAt != nil {
		t.Error("deadline must not be set while credits remain")
	}

	avail, err = ledger.TryConsume(ctx, Account("user-1"))
	if err != nil {
		t.Fatalf("TryConsume failed: %v", err)
	}
	if avail.Credits != 0 {
		t.Errorf("expected 0 credits left, got %d", avail.Credits)
	}
	wantReset := clk.Now().Add(3 * time.Hour)
	if avail.ResetAt == nil || !avail.ResetAt.Equal(wantReset) {
		t.Errorf("exhausting consume must stamp deadline %v, got %v", wantReset, avail.ResetAt)
	}

	_, err = ledger.TryConsume(ctx, Account("user-1"))
	assertAppError(t, err, "quota_exceeded", 429)
}

func TestAccountLazyReplenish(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	resetAt := clk.Now().Add(3 * time.Hour)
	repo := &mockProfileRepo{profile: &Profile{
		UserID:         "user-1",
		Tier:           TierFree,
		Credits:        0,
		CreditsResetAt: &resetAt,
	}}
	ledger := newTestLedger(repo, kvstore.NewMemory(clk), clk)
	ctx := context.Background()

	// Before the deadline nothing changes, however often we look.
	clk.Advance(2*time.Hour + 59*time.Minute)
	for i := 0; i < 3; i++ {
		avail, err := ledger.GetAvailable(ctx, Account("user-1"))
		if err != nil {
			t.Fatalf("GetAvailable failed: %v", err)
		}
		if avail.Credits != 0 {
			t.Fatalf("read %d replenished early: %d credits", i, avail.Credits)
		}
	}

	clk.Advance(time.Minute + time.Second)
	avail, err := ledger.GetAvailable(ctx, Account("user-1"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 5 {
		t.Errorf("expected replenish to tier maximum 5, got %d", avail.Credits)
	}
	if avail.ResetAt != nil {
		t.Error("deadline must clear on replenish")
	}
}

func TestExhaustWaitReplenishScenario(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := &mockProfileRepo{profile: &Profile{UserID: "user-1", Tier: TierFree, Credits: 1}}
	ledger := newTestLedger(repo, kvstore.NewMemory(clk), clk)
	ctx := context.Background()

	avail, err := ledger.TryConsume(ctx, Account("user-1"))
	if err != nil {
		t.Fatalf("TryConsume failed: %v", err)
	}
	if avail.Credits != 0 || avail.ResetAt == nil {
		t.Fatalf("last consume must exhaust and stamp deadline, got %+v", avail)
	}

	clk.Advance(2*time.Hour + 59*time.Minute)
	avail, err = ledger.GetAvailable(ctx, Account("user-1"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 0 {
		t.Errorf("at 2h59m credits must still be 0, got %d", avail.Credits)
	}

	clk.Advance(time.Minute + time.Second)
	avail, err = ledger.GetAvailable(ctx, Account("user-1"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 5 {
		t.Errorf("at 3h1s free tier must replenish to 5, got %d", avail.Credits)
	}
	if avail.ResetAt != nil {
		t.Error("deadline must be absent after replenish")
	}
}

func TestAccountReplenishUsesCurrentTier(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	resetAt := clk.Now().Add(3 * time.Hour)
	repo := &mockProfileRepo{profile: &Profile{
		UserID:         "user-1",
		Tier:           TierFree,
		Credits:        0,
		CreditsResetAt: &resetAt,
	}}
	ledger := newTestLedger(repo, kvstore.NewMemory(clk), clk)
	ctx := context.Background()

	// Upgrade while exhausted: the balance stays 0 until the deadline,
	// then replenishes to the premium maximum.
	if err := ledger.UpgradeTier(ctx, "user-1", TierPremium); err != nil {
		t.Fatalf("UpgradeTier failed: %v", err)
	}
	avail, err := ledger.GetAvailable(ctx, Account("user-1"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 0 {
		t.Errorf("upgrade must not grant immediate credits, got %d", avail.Credits)
	}

	clk.Advance(3*time.Hour + time.Second)
	avail, err = ledger.GetAvailable(ctx, Account("user-1"))
	if err != nil {
		t.Fatalf("GetAvailable failed: %v", err)
	}
	if avail.Credits != 50 {
		t.Errorf("expected premium replenish of 50, got %d", avail.Credits)
	}
}

func TestAccountConsumeRetriesOnceOnCASMiss(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := &mockProfileRepo{profile: &Profile{UserID: "user-1", Tier: TierFree, Credits: 5}}
	misses := 0
	repo.updateCASFn = func(ctx context.Context, userID string, expected, next int, resetAt *time.Time) (bool, error) {
		if misses == 0 {
			misses++
			// Simulate another process spending between read and write.
			repo.mu.Lock()
			repo.profile.Credits = 4
			repo.mu.Unlock()
			return false, nil
		}
		repo.mu.Lock()
		defer repo.mu.Unlock()
		repo.profile.Credits = next
		repo.profile.CreditsResetAt = resetAt
		return true, nil
	}
	ledger := newTestLedger(repo, kvstore.NewMemory(clk), clk)

	avail, err := ledger.TryConsume(context.Background(), Account("user-1"))
	if err != nil {
		t.Fatalf("TryConsume should retry past one CAS miss: %v", err)
	}
	if avail.Credits != 3 {
		t.Errorf("expected 3 credits after retried consume, got %d", avail.Credits)
	}
}

func TestAccountConsumeGivesUpAfterTwoCASMisses(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := &mockProfileRepo{profile: &Profile{UserID: "user-1", Tier: TierFree, Credits: 5}}
	repo.updateCASFn = func(ctx context.Context, userID string, expected, next int, resetAt *time.Time) (bool, error) {
		return false, nil
	}
	ledger := newTestLedger(repo, kvstore.NewMemory(clk), clk)

	_, err := ledger.TryConsume(context.Background(), Account("user-1"))
	assertAppError(t, err, "conflict", 409)
}

func TestConcurrentConsumeNoDoubleSpend(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := &mockProfileRepo{profile: &Profile{UserID: "user-1", Tier: TierFree, Credits: 5}}
	ledger := newTestLedger(repo, kvstore.NewMemory(clk), clk)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.TryConsume(ctx, Account("user-1")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Errorf("5 credits must allow exactly 5 consumes, got %d", succeeded)
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.profile.Credits != 0 {
		t.Errorf("expected 0 credits remaining, got %d", repo.profile.Credits)
	}
}

func TestAccountConsumeStoreErrorSurfaces(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := &mockProfileRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Profile, error) {
			return nil, errors.New("driver: bad connection")
		},
	}
	ledger := newTestLedger(repo, kvstore.NewMemory(clk), clk)

	_, err := ledger.TryConsume(context.Background(), Account("user-1"))
	assertAppError(t, err, "store_unavailable", 503)
}

func TestUpgradeTierRejectsUnknownTier(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ledger := newTestLedger(&mockProfileRepo{}, kvstore.NewMemory(clk), clk)

	err := ledger.UpgradeTier(context.Background(), "user-1", Tier("gold"))
	assertAppError(t, err, "bad_request", 400)
}
