package credits

import (
	"github.com/labstack/echo/v4"

	"github.com/jobdeck/jobdeck/internal/plugins/auth"
)

// RegisterRoutes sets up the credit endpoints. OptionalAuth (not
// RequireAuth) because guests consume from the same endpoints; without a
// session the visitor cookie identifies the caller.
func RegisterRoutes(e *echo.Echo, h *Handler, authService auth.AuthService) {
	g := e.Group("/api/credits", auth.OptionalAuth(authService))
	g.GET("", h.Available)
	g.POST("/consume", h.Consume)
}
