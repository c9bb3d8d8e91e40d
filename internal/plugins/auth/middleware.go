package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Context keys for storing session data in Echo context. Other plugins
// use these keys (via the exported getter functions below) to access
// the authenticated user's information.
const (
	contextKeySession = "auth_session"
	contextKeyUserID  = "auth_user_id"
)

// RequireAuth returns middleware that validates the session cookie and
// injects session data into the request context. Requests without a valid
// session get a 401 JSON response.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := getSessionToken(c)
			if token == "" {
				return unauthenticated(c)
			}

			session, err := service.ValidateSession(c.Request().Context(), token)
			if err != nil {
				// Invalid or expired session -- clear the stale cookie.
				clearSessionCookie(c)
				return unauthenticated(c)
			}

			c.Set(contextKeySession, session)
			c.Set(contextKeyUserID, session.UserID)

			return next(c)
		}
	}
}

// OptionalAuth returns middleware that injects session data when a valid
// session cookie is present but lets anonymous requests through untouched.
// The credit endpoints use it: the same route serves guests and accounts.
func OptionalAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := getSessionToken(c)
			if token == "" {
				return next(c)
			}

			session, err := service.ValidateSession(c.Request().Context(), token)
			if err != nil {
				clearSessionCookie(c)
				return next(c)
			}

			c.Set(contextKeySession, session)
			c.Set(contextKeyUserID, session.UserID)

			return next(c)
		}
	}
}

// unauthenticated returns the JSON 401 response for missing/invalid sessions.
func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error":   "unauthorized",
		"message": "authentication required",
	})
}

// --- Exported getters for other plugins ---

// GetSession retrieves the authenticated session from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetSession(c echo.Context) *Session {
	session, ok := c.Get(contextKeySession).(*Session)
	if !ok {
		return nil
	}
	return session
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}
