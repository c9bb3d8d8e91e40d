package admin

import (
	"github.com/labstack/echo/v4"

	"github.com/jobdeck/jobdeck/internal/apperror"
)

// RequireAdmin guards routes behind a live admin session. The token comes
// from the admin cookie; a missing or expired session is a 401 regardless
// of whether the gate was ever revealed to this visitor.
func RequireAdmin(service GateService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(adminCookieName)
			if err != nil {
				return apperror.NewUnauthorized("admin session required")
			}

			ok, err := service.ValidateAdmin(c.Request().Context(), cookie.Value)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.NewUnauthorized("admin session required")
			}

			return next(c)
		}
	}
}
