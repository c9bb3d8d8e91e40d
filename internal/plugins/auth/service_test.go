package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jobdeck/jobdeck/internal/apperror"
)

// --- Mock Repository ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn          func(ctx context.Context, user *User) error
	findByIDFn        func(ctx context.Context, id string) (*User, error)
	findByEmailFn     func(ctx context.Context, email string) (*User, error)
	emailExistsFn     func(ctx context.Context, email string) (bool, error)
	updateLastLoginFn func(ctx context.Context, id string) error
	listUsersFn       func(ctx context.Context, offset, limit int) ([]User, int, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.emailExistsFn != nil {
		return m.emailExistsFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) ListUsers(ctx context.Context, offset, limit int) ([]User, int, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

// mockEnsurer implements ProfileEnsurer for testing.
type mockEnsurer struct {
	ensureFn func(ctx context.Context, userID string) (*CreditSnapshot, error)
	calls    int
}

func (m *mockEnsurer) EnsureProfile(ctx context.Context, userID string) (*CreditSnapshot, error) {
	m.calls++
	if m.ensureFn != nil {
		return m.ensureFn(ctx, userID)
	}
	return &CreditSnapshot{Tier: "free", Credits: 5}, nil
}

// --- Helpers ---

func newTestService(t *testing.T, repo UserRepository, profiles ProfileEnsurer) (AuthService, *Broadcaster) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	broadcaster := NewBroadcaster()
	return NewAuthService(repo, client, profiles, broadcaster, time.Hour), broadcaster
}

// existingUser returns a repo preloaded with one user whose password is
// "correct-password".
func existingUser(t *testing.T) (*mockUserRepo, *User) {
	t.Helper()
	hash, err := hashPassword("correct-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &User{
		ID:           "user-1",
		Email:        "jane@example.com",
		DisplayName:  "Jane",
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			if email == user.Email {
				clone := *user
				return &clone, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
	}
	return repo, user
}

// --- Register ---

func TestRegisterHashesAndNormalizes(t *testing.T) {
	var created *User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			created = user
			return nil
		},
	}
	service, _ := newTestService(t, repo, &mockEnsurer{})

	user, err := service.Register(context.Background(), RegisterInput{
		Email:       "  Jane@Example.COM ",
		DisplayName: " Jane ",
		Password:    "correct-password",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be persisted")
	}
	if user.Email != "jane@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}
	if user.DisplayName != "Jane" {
		t.Errorf("expected trimmed display name, got %q", user.DisplayName)
	}
	if user.PasswordHash == "correct-password" || !strings.HasPrefix(user.PasswordHash, "$argon2id$") {
		t.Errorf("expected argon2id hash, got %q", user.PasswordHash)
	}
	if user.ID == "" {
		t.Error("expected generated user ID")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			return true, nil
		},
	}
	service, _ := newTestService(t, repo, &mockEnsurer{})

	_, err := service.Register(context.Background(), RegisterInput{
		Email:       "jane@example.com",
		DisplayName: "Jane",
		Password:    "correct-password",
	})

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Type != "conflict" {
		t.Errorf("expected conflict, got %v", err)
	}
}

// --- Login ---

func TestLoginSuccessCreatesSessionAndPublishes(t *testing.T) {
	repo, user := existingUser(t)
	ensurer := &mockEnsurer{
		ensureFn: func(ctx context.Context, userID string) (*CreditSnapshot, error) {
			return &CreditSnapshot{Tier: "premium", Credits: 50}, nil
		},
	}
	service, broadcaster := newTestService(t, repo, ensurer)

	token, got, err := service.Login(context.Background(), LoginInput{
		Email:    "jane@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64-char session token, got %d chars", len(token))
	}
	if got.ID != user.ID {
		t.Errorf("expected user %q, got %q", user.ID, got.ID)
	}
	if ensurer.calls != 1 {
		t.Errorf("expected exactly one EnsureProfile call, got %d", ensurer.calls)
	}

	// The session round-trips through Redis.
	session, err := service.ValidateSession(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if session.UserID != user.ID {
		t.Errorf("session user = %q, want %q", session.UserID, user.ID)
	}

	// The broadcast state carries the ledger's snapshot.
	state := broadcaster.Current()
	if state.Account == nil {
		t.Fatal("expected account in broadcast state after login")
	}
	if state.Account.Tier != "premium" || state.Account.Credits != 50 {
		t.Errorf("broadcast account = %+v, want premium/50", state.Account)
	}
}

func TestLoginWrongPasswordIsGeneric(t *testing.T) {
	repo, _ := existingUser(t)
	service, _ := newTestService(t, repo, &mockEnsurer{})

	_, _, err := service.Login(context.Background(), LoginInput{
		Email:    "jane@example.com",
		Password: "wrong-password",
	})

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Type != "unauthorized" {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if appErr.Message != "invalid email or password" {
		t.Errorf("wrong password must not be distinguishable from unknown email, got %q", appErr.Message)
	}
}

func TestLoginUnknownEmailIsGeneric(t *testing.T) {
	service, _ := newTestService(t, &mockUserRepo{}, &mockEnsurer{})

	_, _, err := service.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "correct-password",
	})

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Type != "unauthorized" {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if appErr.Message != "invalid email or password" {
		t.Errorf("unknown email must not be distinguishable from wrong password, got %q", appErr.Message)
	}
}

func TestLoginFailsWhenProfileCannotBeEnsured(t *testing.T) {
	repo, _ := existingUser(t)
	ensurer := &mockEnsurer{
		ensureFn: func(ctx context.Context, userID string) (*CreditSnapshot, error) {
			return nil, apperror.NewStoreUnavailable(errors.New("connection refused"))
		},
	}
	service, broadcaster := newTestService(t, repo, ensurer)

	_, _, err := service.Login(context.Background(), LoginInput{
		Email:    "jane@example.com",
		Password: "correct-password",
	})

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Type != "store_unavailable" {
		t.Fatalf("expected store_unavailable, got %v", err)
	}

	// A failed login must not publish an authenticated state.
	if broadcaster.Current().Account != nil {
		t.Error("failed login leaked an account into the broadcast state")
	}
}

// --- Sessions ---

func TestValidateSessionExpired(t *testing.T) {
	repo, _ := existingUser(t)
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	service := NewAuthService(repo, client, &mockEnsurer{}, NewBroadcaster(), time.Hour)

	token, _, err := service.Login(context.Background(), LoginInput{
		Email:    "jane@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	srv.FastForward(time.Hour + time.Second)

	_, err = service.ValidateSession(context.Background(), token)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Type != "unauthorized" {
		t.Errorf("expected unauthorized for expired session, got %v", err)
	}
}

func TestDestroySessionClearsStateAndBroadcast(t *testing.T) {
	repo, _ := existingUser(t)
	ensurer := &mockEnsurer{}
	service, broadcaster := newTestService(t, repo, ensurer)

	token, _, err := service.Login(context.Background(), LoginInput{
		Email:    "jane@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := service.DestroySession(context.Background(), token); err != nil {
		t.Fatalf("DestroySession failed: %v", err)
	}

	if _, err := service.ValidateSession(context.Background(), token); err == nil {
		t.Error("destroyed session must not validate")
	}
	if broadcaster.Current().Account != nil {
		t.Error("logout must clear the broadcast account")
	}
}

// --- Password hashing ---

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}

	if !verifyPassword("hunter2hunter2", hash) {
		t.Error("correct password must verify")
	}
	if verifyPassword("hunter2hunter3", hash) {
		t.Error("wrong password must not verify")
	}
	if verifyPassword("hunter2hunter2", "not-a-phc-string") {
		t.Error("malformed hash must not verify")
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	a, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	b, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password must differ by salt")
	}
}
