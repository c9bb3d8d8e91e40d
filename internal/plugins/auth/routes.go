package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jobdeck/jobdeck/internal/middleware"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// Auth routes are public (no session required) -- the middleware is exported
// separately for other plugins to use on their route groups.
//
// POST endpoints are rate-limited to slow brute-force and credential
// stuffing attacks: 10 attempts per IP per minute for login, 5 for register.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	e.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))
	e.POST("/logout", h.Logout)

	e.GET("/api/auth/state", h.State)
}
