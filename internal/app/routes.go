package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jobdeck/jobdeck/internal/kvstore"
	"github.com/jobdeck/jobdeck/internal/plugins/admin"
	"github.com/jobdeck/jobdeck/internal/plugins/auth"
	"github.com/jobdeck/jobdeck/internal/plugins/credits"
)

// RegisterRoutes wires every plugin together and registers its routes.
// This is the single place where the dependency graph is assembled: the
// broadcaster and key-value store are shared, the credit ledger doubles as
// the auth service's profile provider, and each plugin registers its own
// route group.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for container orchestration. Verifies the two
	// backing stores, not just process liveness.
	e.GET("/healthz", a.healthz)

	// Shared infrastructure.
	store := kvstore.NewRedis(a.Redis, "jobdeck:")
	broadcaster := auth.NewBroadcaster()

	// Log every auth state transition. Also serves as the always-present
	// subscriber that exercises the replay path on startup.
	broadcaster.Subscribe(func(state auth.AuthState) {
		if state.Account != nil {
			slog.Debug("auth state changed",
				slog.String("user_id", state.Account.UserID),
				slog.Int("credits", state.Account.Credits),
			)
			return
		}
		slog.Debug("auth state changed", slog.String("account", "none"))
	})

	// --- Credits plugin ---
	profileRepo := credits.NewProfileRepository(a.DB)
	ledger := credits.NewLedger(profileRepo, store, a.Clock, credits.Rules{
		GuestResetWindow:   a.Config.Credits.GuestResetWindow,
		AccountResetWindow: a.Config.Credits.AccountResetWindow,
		FreeCredits:        a.Config.Credits.FreeTierCredits,
		PremiumCredits:     a.Config.Credits.PremiumTierCredits,
	}, broadcaster)

	// --- Auth plugin ---
	// The ledger is the auth service's profile provider: a first login
	// creates the credit profile, later logins fetch it.
	userRepo := auth.NewUserRepository(a.DB)
	authService := auth.NewAuthService(userRepo, a.Redis, ledger, broadcaster, a.Config.Auth.SessionTTL)
	auth.RegisterRoutes(e, auth.NewHandler(authService, broadcaster))

	credits.RegisterRoutes(e, credits.NewHandler(ledger), authService)

	// --- Admin plugin ---
	adminCfg := a.Config.Admin
	guard := admin.NewLockoutGuard(store, a.Clock, adminCfg.MaxAttempts, adminCfg.LockoutDuration)
	triggers := admin.NewTriggerRegistry(a.Clock, adminCfg.ActivationPhrase, adminCfg.ActivationClicks,
		adminCfg.KeystrokeTimeout, adminCfg.ClickTimeout)
	auditRepo := admin.NewAuditEventRepository(a.DB)
	gateService := admin.NewGateService(store, guard, triggers, auditRepo, adminCfg)
	admin.RegisterRoutes(e, admin.NewHandler(gateService, userRepo, auditRepo, adminCfg.SessionTTL))
}

// healthz verifies MariaDB and Redis connectivity.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := a.DB.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded", "database": err.Error(),
		})
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded", "redis": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
