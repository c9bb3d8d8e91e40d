// Package admin implements the hidden admin gate: the activation triggers
// that reveal it, the brute-force lockout guarding it, and the audit trail
// of attempts against it.
//
// The gate is deliberately modest. It holds a single shared secret from
// configuration, compared in constant time, and the lockout slows guessing
// rather than preventing it. It protects a maintenance surface, not user
// data; anything stronger belongs behind real authentication.
package admin

import "time"

// Event type constants follow the "resource.verb" pattern for consistent
// filtering in the audit log.
const (
	EventGateUnlocked  = "gate.unlocked"
	EventGateFailed    = "gate.attempt_failed"
	EventGateLockedOut = "gate.locked_out"
	EventGateRevealed  = "gate.revealed"
	EventAdminLogout   = "admin.logout"
)

// AuditEvent is one row of the admin audit trail: a gate attempt, a lockout
// transition, or an activation trigger firing.
type AuditEvent struct {
	ID        int64  `json:"id"`
	EventType string `json:"event_type"`

	// ClientID is the visitor cookie (or IP fallback) the event belongs to.
	ClientID  string         `json:"client_id"`
	IPAddress string         `json:"ip_address"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// GateRequest is a password attempt against the admin gate.
type GateRequest struct {
	Secret string `json:"secret"`
}

// GateStatus is the gate's state as seen by one client: whether the gate
// has been revealed to them, whether they are locked out, and how many
// attempts remain. RetryAfterSeconds is derived from the stored lockout
// deadline at response time.
type GateStatus struct {
	Revealed          bool `json:"revealed"`
	Unlocked          bool `json:"unlocked"`
	Locked            bool `json:"locked"`
	AttemptsRemaining int  `json:"attempts_remaining"`
	RetryAfterSeconds int  `json:"retry_after_seconds,omitempty"`
}

// ObserveRequest carries one activation token: a single keystroke character
// for the phrase trigger, ignored for the click trigger.
type ObserveRequest struct {
	Key string `json:"key"`
}

// ObserveResponse reports whether this observation completed a trigger.
type ObserveResponse struct {
	Revealed bool `json:"revealed"`
}
