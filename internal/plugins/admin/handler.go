package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jobdeck/jobdeck/internal/apperror"
	"github.com/jobdeck/jobdeck/internal/middleware"
	"github.com/jobdeck/jobdeck/internal/plugins/auth"
)

// adminCookieName is the HTTP cookie holding the admin session token.
const adminCookieName = "jobdeck_admin"

// usersPerPage is the page size for the admin user listing.
const usersPerPage = 50

// Handler handles HTTP requests for the admin gate, its activation
// triggers, and the maintenance views behind it.
type Handler struct {
	service    GateService
	users      auth.UserRepository
	events     AuditEventRepository
	sessionTTL time.Duration
}

// NewHandler creates a new admin handler.
func NewHandler(service GateService, users auth.UserRepository, events AuditEventRepository, sessionTTL time.Duration) *Handler {
	return &Handler{service: service, users: users, events: events, sessionTTL: sessionTTL}
}

// ObserveKey records one keystroke for the phrase trigger
// (POST /api/activation/keys).
func (h *Handler) ObserveKey(c echo.Context) error {
	var req ObserveRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	revealed, err := h.service.ObserveKey(c.Request().Context(), middleware.VisitorID(c), c.RealIP(), req.Key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ObserveResponse{Revealed: revealed})
}

// ObserveClick records one click for the burst trigger
// (POST /api/activation/clicks).
func (h *Handler) ObserveClick(c echo.Context) error {
	revealed, err := h.service.ObserveClick(c.Request().Context(), middleware.VisitorID(c), c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ObserveResponse{Revealed: revealed})
}

// Status reports the gate state for this visitor (GET /admin/gate).
func (h *Handler) Status(c echo.Context) error {
	status, err := h.service.Status(c.Request().Context(), middleware.VisitorID(c))
	if err != nil {
		return err
	}

	// A live admin cookie shows as unlocked without another attempt.
	if cookie, cErr := c.Cookie(adminCookieName); cErr == nil {
		if ok, vErr := h.service.ValidateAdmin(c.Request().Context(), cookie.Value); vErr == nil && ok {
			status.Unlocked = true
		}
	}

	return c.JSON(http.StatusOK, status)
}

// Attempt processes a gate password attempt (POST /admin/gate).
func (h *Handler) Attempt(c echo.Context) error {
	var req GateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	token, err := h.service.Attempt(c.Request().Context(), middleware.VisitorID(c), c.RealIP(), req.Secret)
	if err != nil {
		return err
	}

	h.setAdminCookie(c, token)
	return c.JSON(http.StatusOK, map[string]bool{"unlocked": true})
}

// Logout clears the admin session (POST /admin/logout). The cookie is
// cleared even when the server-side flag is already gone.
func (h *Handler) Logout(c echo.Context) error {
	token := ""
	if cookie, err := c.Cookie(adminCookieName); err == nil {
		token = cookie.Value
	}

	err := h.service.Logout(c.Request().Context(), middleware.VisitorID(c), c.RealIP(), token)
	h.clearAdminCookie(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"unlocked": false})
}

// ListUsers returns a page of registered accounts (GET /admin/users).
func (h *Handler) ListUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	users, total, err := h.users.ListUsers(c.Request().Context(), (page-1)*usersPerPage, usersPerPage)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"users": users,
		"total": total,
		"page":  page,
	})
}

// ListEvents returns the most recent audit events (GET /admin/events).
// The optional "type" query parameter filters by event type.
func (h *Handler) ListEvents(c echo.Context) error {
	events, err := h.events.ListRecent(c.Request().Context(), c.QueryParam("type"), 100)
	if err != nil {
		return apperror.NewStoreUnavailable(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"events": events})
}

// setAdminCookie attaches the admin session cookie to the response.
func (h *Handler) setAdminCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     adminCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAdminCookie expires the admin session cookie.
func (h *Handler) clearAdminCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}
