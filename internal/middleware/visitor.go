package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"
)

// visitorCookieName identifies an anonymous browser across requests. Guest
// credit state and the admin activation detectors are keyed by this ID.
const visitorCookieName = "jobdeck_visitor"

// visitorIDBytes is the number of random bytes in a visitor ID (hex-encoded).
const visitorIDBytes = 16

// VisitorID returns the caller's anonymous visitor ID, issuing and setting
// a new one on the response when the cookie is missing or malformed. The ID
// is opaque client state, not an authenticated identity.
func VisitorID(c echo.Context) string {
	if cookie, err := c.Cookie(visitorCookieName); err == nil && validVisitorID(cookie.Value) {
		return cookie.Value
	}

	id := newVisitorID()
	c.SetCookie(&http.Cookie{
		Name:     visitorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// newVisitorID creates a cryptographically random hex-encoded ID.
func newVisitorID() string {
	b := make([]byte, visitorIDBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// validVisitorID rejects cookie values that can't be ours. Keys derived
// from the ID end up in the shared store, so shape-check before trusting.
func validVisitorID(id string) bool {
	if len(id) != visitorIDBytes*2 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
