// Package auth handles user accounts, login sessions, and the broadcast
// authentication state for Jobdeck. Accounts are stored in MariaDB with
// argon2id password hashes; sessions are opaque tokens stored in Redis.
//
// The credit profile (tier, credits, reset deadline) is owned by the
// credits plugin and created lazily on first successful login.
package auth

import (
	"time"
)

// User represents a registered Jobdeck user. This is the domain model used
// throughout the application. Database scanning and JSON marshaling use this
// struct directly.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-"` // Never expose in JSON responses.
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the data submitted by the registration form.
type RegisterRequest struct {
	Email       string `json:"email" form:"email"`
	DisplayName string `json:"display_name" form:"display_name"`
	Password    string `json:"password" form:"password"`
}

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the validated input for creating a new user.
type RegisterInput struct {
	Email       string
	DisplayName string
	Password    string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// --- Session ---

// Session represents an authenticated user session stored in Redis.
// The session token is the key, and this struct is the value (JSON-encoded).
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Broadcast payload ---

// Account is the identity half of the broadcast AuthState: who is signed in
// and their current credit standing.
type Account struct {
	UserID         string     `json:"user_id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Tier           string     `json:"tier"`
	Credits        int        `json:"credits"`
	CreditsResetAt *time.Time `json:"credits_reset_at,omitempty"`
}

// AuthState is the canonical authenticated-identity-or-none state pushed to
// every subscriber. Exactly one copy exists per Broadcaster; all subscribers
// observe the same sequence of states.
type AuthState struct {
	// Account is nil when no identity is signed in.
	Account *Account `json:"account"`

	// Loading is true while a login or logout is in flight.
	Loading bool `json:"loading"`

	// Initialized flips to true once the initial state has been resolved
	// at startup and never goes back.
	Initialized bool `json:"initialized"`
}

// CreditSnapshot is what the credit ledger reports back to the auth service
// when a profile is ensured at login. Defined here so the credits plugin can
// depend on auth without a cycle.
type CreditSnapshot struct {
	Tier           string
	Credits        int
	CreditsResetAt *time.Time
}
