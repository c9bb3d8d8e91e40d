package admin

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jobdeck/jobdeck/internal/middleware"
)

// RegisterRoutes sets up the admin gate and activation routes.
//
// The activation endpoints take one request per keystroke or click, so
// their rate limit is sized for typing speed rather than form submission.
// The gate attempt itself is tight: the lockout guard is the real defense,
// the rate limit just keeps a scripted attacker from churning visitor
// cookies cheaply.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/api/activation/keys", h.ObserveKey, middleware.RateLimit(300, time.Minute))
	e.POST("/api/activation/clicks", h.ObserveClick, middleware.RateLimit(300, time.Minute))

	e.GET("/admin/gate", h.Status)
	e.POST("/admin/gate", h.Attempt, middleware.RateLimit(10, time.Minute))
	e.POST("/admin/logout", h.Logout)

	// Maintenance views, admin session required.
	authed := e.Group("/admin", RequireAdmin(h.service))
	authed.GET("/users", h.ListUsers)
	authed.GET("/events", h.ListEvents)
}
