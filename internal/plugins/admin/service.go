package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobdeck/jobdeck/internal/apperror"
	"github.com/jobdeck/jobdeck/internal/config"
	"github.com/jobdeck/jobdeck/internal/kvstore"
)

// Key prefixes for gate state beyond the lockout's own keys.
const (
	adminSessionKeyPrefix = "admin:session:"
	revealedKeyPrefix     = "admin:revealed:"
)

// revealTTL is how long a fired activation trigger keeps the gate visible
// for that visitor before they must trigger it again.
const revealTTL = time.Hour

// failureLookback is the window over which repeated gate failures from one
// client are counted for the audit trail. A client racking up failures
// across several lockout cycles is flagged in the log.
const failureLookback = time.Hour

// GateService is the admin gate: activation observations that reveal it,
// password attempts through the lockout guard, and the admin session flag
// handed out on success.
type GateService interface {
	// ObserveKey feeds one keystroke into the visitor's phrase trigger.
	ObserveKey(ctx context.Context, visitorID, ip, key string) (revealed bool, err error)

	// ObserveClick feeds one click into the visitor's burst trigger.
	ObserveClick(ctx context.Context, visitorID, ip string) (revealed bool, err error)

	// Status reports the gate as the visitor sees it.
	Status(ctx context.Context, visitorID string) (*GateStatus, error)

	// Attempt checks a password attempt. On success it returns an admin
	// session token; failures and lockouts come back as AppErrors carrying
	// the remaining-attempt count or retry deadline.
	Attempt(ctx context.Context, visitorID, ip, secret string) (token string, err error)

	// ValidateAdmin reports whether the token is a live admin session.
	ValidateAdmin(ctx context.Context, token string) (bool, error)

	// Logout destroys the admin session.
	Logout(ctx context.Context, visitorID, ip, token string) error
}

// gateService implements GateService.
type gateService struct {
	store    kvstore.Store
	guard    *LockoutGuard
	triggers *TriggerRegistry
	events   AuditEventRepository
	cfg      config.AdminConfig
}

// NewGateService creates the gate service.
func NewGateService(store kvstore.Store, guard *LockoutGuard, triggers *TriggerRegistry, events AuditEventRepository, cfg config.AdminConfig) GateService {
	return &gateService{
		store:    store,
		guard:    guard,
		triggers: triggers,
		events:   events,
		cfg:      cfg,
	}
}

// ObserveKey feeds a keystroke to the phrase detector. The detector only
// reports the match; revealing the gate is this service's side effect.
func (s *gateService) ObserveKey(ctx context.Context, visitorID, ip, key string) (bool, error) {
	if !s.triggers.ObserveKey(visitorID, key) {
		return false, nil
	}
	return true, s.reveal(ctx, visitorID, ip, "phrase")
}

// ObserveClick feeds a click to the burst detector.
func (s *gateService) ObserveClick(ctx context.Context, visitorID, ip string) (bool, error) {
	if !s.triggers.ObserveClick(visitorID) {
		return false, nil
	}
	return true, s.reveal(ctx, visitorID, ip, "clicks")
}

// reveal marks the gate visible for the visitor and records the trigger.
func (s *gateService) reveal(ctx context.Context, visitorID, ip, trigger string) error {
	if err := s.store.Set(ctx, revealedKeyPrefix+visitorID, "1", revealTTL); err != nil {
		return apperror.NewStoreUnavailable(err)
	}
	s.audit(ctx, EventGateRevealed, visitorID, ip, map[string]any{"trigger": trigger})
	return nil
}

// Status reports the gate state for one visitor. Reading it runs the lazy
// lockout expiry check as a side effect.
func (s *gateService) Status(ctx context.Context, visitorID string) (*GateStatus, error) {
	status := &GateStatus{}

	_, revealed, err := s.store.Get(ctx, revealedKeyPrefix+visitorID)
	if err != nil {
		return nil, apperror.NewStoreUnavailable(err)
	}
	status.Revealed = revealed

	locked, remaining, err := s.guard.IsLocked(ctx, visitorID)
	if err != nil {
		return nil, apperror.NewStoreUnavailable(err)
	}
	if locked {
		status.Locked = true
		status.RetryAfterSeconds = int(remaining.Seconds())
		return status, nil
	}

	attempts, err := s.guard.RemainingAttempts(ctx, visitorID)
	if err != nil {
		return nil, apperror.NewStoreUnavailable(err)
	}
	status.AttemptsRemaining = attempts
	return status, nil
}

// Attempt runs a password attempt through the lockout guard. Any store
// failure along the way fails the attempt closed: no admin session is
// created on a state we could not persist.
func (s *gateService) Attempt(ctx context.Context, visitorID, ip, secret string) (string, error) {
	locked, remaining, err := s.guard.IsLocked(ctx, visitorID)
	if err != nil {
		return "", apperror.NewStoreUnavailable(err)
	}
	if locked {
		return "", apperror.NewLockedOut(remaining)
	}

	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.Secret)) != 1 {
		lockedOut, err := s.guard.RecordFailure(ctx, visitorID)
		if err != nil {
			return "", apperror.NewStoreUnavailable(err)
		}
		if lockedOut {
			s.audit(ctx, EventGateLockedOut, visitorID, ip, nil)
			slog.Warn("admin gate locked out",
				slog.String("client_id", visitorID),
				slog.String("ip", ip),
			)
			return "", apperror.NewLockedOut(s.cfg.LockoutDuration)
		}

		attempts, attErr := s.guard.RemainingAttempts(ctx, visitorID)
		if attErr != nil {
			attempts = 0
		}
		details := map[string]any{"attempts_remaining": attempts}
		if s.events != nil {
			recent, cntErr := s.events.CountRecentByClient(ctx, visitorID, EventGateFailed, failureLookback)
			if cntErr == nil {
				details["recent_failures"] = recent
				if recent+1 > s.cfg.MaxAttempts*2 {
					slog.Warn("sustained admin gate failures",
						slog.String("client_id", visitorID),
						slog.String("ip", ip),
						slog.Int("recent_failures", recent+1),
					)
				}
			}
		}
		s.audit(ctx, EventGateFailed, visitorID, ip, details)
		return "", apperror.NewUnauthorized(fmt.Sprintf("incorrect passphrase, %d attempts remaining", attempts))
	}

	if err := s.guard.RecordSuccess(ctx, visitorID); err != nil {
		return "", apperror.NewStoreUnavailable(err)
	}

	token, err := generateAdminToken()
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("generating admin token: %w", err))
	}
	if err := s.store.Set(ctx, adminSessionKeyPrefix+token, visitorID, s.cfg.SessionTTL); err != nil {
		return "", apperror.NewStoreUnavailable(err)
	}

	s.audit(ctx, EventGateUnlocked, visitorID, ip, nil)
	slog.Info("admin gate unlocked",
		slog.String("client_id", visitorID),
		slog.String("ip", ip),
	)
	return token, nil
}

// ValidateAdmin reports whether the token names a live admin session.
func (s *gateService) ValidateAdmin(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	_, found, err := s.store.Get(ctx, adminSessionKeyPrefix+token)
	if err != nil {
		return false, apperror.NewStoreUnavailable(err)
	}
	return found, nil
}

// Logout destroys the admin session.
func (s *gateService) Logout(ctx context.Context, visitorID, ip, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.Remove(ctx, adminSessionKeyPrefix+token); err != nil {
		return apperror.NewStoreUnavailable(err)
	}
	s.audit(ctx, EventAdminLogout, visitorID, ip, nil)
	return nil
}

// audit records an event, fire-and-forget. The audit trail is secondary to
// the gate itself; a dead database must not block a gate decision already
// made.
func (s *gateService) audit(ctx context.Context, eventType, clientID, ip string, details map[string]any) {
	if s.events == nil {
		return
	}
	event := &AuditEvent{
		EventType: eventType,
		ClientID:  clientID,
		IPAddress: ip,
		Details:   details,
	}
	if err := s.events.Log(ctx, event); err != nil {
		slog.Error("failed to log admin audit event",
			slog.String("event_type", eventType),
			slog.Any("error", err),
		)
	}
}

// generateAdminToken creates a 64-character hex admin session token.
func generateAdminToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
