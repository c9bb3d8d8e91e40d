package auth

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jobdeck/jobdeck/internal/apperror"
)

// sessionCookieName is the HTTP cookie used to store the session token.
const sessionCookieName = "jobdeck_session"

// Handler handles HTTP requests for authentication (login, register, logout,
// auth state). Handlers are thin: they bind the request, call the service,
// and render the response. No business logic lives here.
type Handler struct {
	service     AuthService
	broadcaster *Broadcaster
}

// NewHandler creates a new auth handler with the given dependencies.
func NewHandler(service AuthService, broadcaster *Broadcaster) *Handler {
	return &Handler{service: service, broadcaster: broadcaster}
}

// Register processes a registration submission (POST /register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if msg := validateRegisterRequest(&req); msg != "" {
		return apperror.NewBadRequest(msg)
	}

	user, err := h.service.Register(c.Request().Context(), RegisterInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// Login processes a login submission (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Email == "" || req.Password == "" {
		return apperror.NewBadRequest("email and password are required")
	}

	token, user, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	setSessionCookie(c, token)
	return c.JSON(http.StatusOK, user)
}

// Logout destroys the current session (POST /logout). Always clears the
// cookie, even when no session exists.
func (h *Handler) Logout(c echo.Context) error {
	token := getSessionToken(c)
	clearSessionCookie(c)

	if token != "" {
		if err := h.service.DestroySession(c.Request().Context(), token); err != nil {
			return err
		}
	}

	return c.NoContent(http.StatusNoContent)
}

// State returns the current broadcast AuthState (GET /api/auth/state).
// The countdown UI polls this; it is a pure read with no side effects.
func (h *Handler) State(c echo.Context) error {
	return c.JSON(http.StatusOK, h.broadcaster.Current())
}

// --- Validation ---

// validateRegisterRequest performs basic server-side validation and returns
// a user-facing message, or empty string when the request is acceptable.
func validateRegisterRequest(req *RegisterRequest) string {
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		return "a valid email address is required"
	}
	if name := strings.TrimSpace(req.DisplayName); len(name) < 2 || len(name) > 100 {
		return "display name must be between 2 and 100 characters"
	}
	if len(req.Password) < 8 || len(req.Password) > 128 {
		return "password must be between 8 and 128 characters"
	}
	return ""
}

// --- Cookie helpers ---

// getSessionToken reads the session token from the request cookie.
func getSessionToken(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setSessionCookie writes the session cookie. HttpOnly keeps it away from
// JS; SameSite=Lax still sends it on top-level navigation.
func setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie immediately.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}
