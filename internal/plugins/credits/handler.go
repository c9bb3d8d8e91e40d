package credits

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jobdeck/jobdeck/internal/middleware"
	"github.com/jobdeck/jobdeck/internal/plugins/auth"
)

// Handler exposes the credit ledger over HTTP. Both endpoints serve guests
// and signed-in accounts; the identity is derived per request.
type Handler struct {
	ledger Ledger
}

// NewHandler creates a new credits handler.
func NewHandler(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// Available reports the caller's remaining quota (GET /api/credits).
func (h *Handler) Available(c echo.Context) error {
	avail, err := h.ledger.GetAvailable(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, avail)
}

// Consume spends one credit on behalf of the caller
// (POST /api/credits/consume). The service layer decides whether any
// remain; a 429 response carries the reset deadline in the error body.
func (h *Handler) Consume(c echo.Context) error {
	avail, err := h.ledger.TryConsume(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, avail)
}

// identityFrom resolves the request to an account (session present) or a
// guest keyed by the visitor cookie.
func identityFrom(c echo.Context) Identity {
	if userID := auth.GetUserID(c); userID != "" {
		return Account(userID)
	}
	return Guest(middleware.VisitorID(c))
}
