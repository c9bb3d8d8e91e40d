// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds account authentication settings.
	Auth AuthConfig

	// Credits holds credit ledger quota and reset settings.
	Credits CreditsConfig

	// Admin holds admin gate, lockout, and activation trigger settings.
	Admin AdminConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so container
// orchestrators can manage each independently. If DATABASE_URL is set, it
// takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "jobdeck").
	User string

	// Password is the MariaDB password (default: "jobdeck").
	Password string

	// Name is the database name (default: "jobdeck").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds account authentication settings.
type AuthConfig struct {
	// SessionTTL is how long login sessions last before expiring.
	SessionTTL time.Duration
}

// CreditsConfig holds credit ledger settings. A credit is one unit of
// permission to run an AI-assisted action (resume analysis, rebuild).
type CreditsConfig struct {
	// GuestResetWindow is how long after a guest's single credit is spent
	// before it becomes available again.
	GuestResetWindow time.Duration

	// AccountResetWindow is how long an exhausted account waits before its
	// credits replenish to the tier maximum.
	AccountResetWindow time.Duration

	// FreeTierCredits is the replenishment amount for free accounts.
	FreeTierCredits int

	// PremiumTierCredits is the replenishment amount for premium accounts.
	PremiumTierCredits int
}

// AdminConfig holds admin gate settings: the shared gate secret, the
// brute-force lockout policy, and the two hidden activation triggers that
// reveal the gate.
type AdminConfig struct {
	// Secret is the shared admin gate passphrase. A single static secret,
	// not a hashed per-user credential -- the gate plus its lockout is an
	// obscurity measure, not a security boundary suitable for real secrets.
	Secret string

	// MaxAttempts is how many failed gate attempts are allowed before lockout.
	MaxAttempts int

	// LockoutDuration is how long the gate stays locked after MaxAttempts.
	LockoutDuration time.Duration

	// SessionTTL is how long an unlocked admin session flag persists.
	SessionTTL time.Duration

	// ActivationPhrase is the keystroke sequence that reveals the gate.
	ActivationPhrase string

	// ActivationClicks is the number of rapid clicks that reveals the gate.
	ActivationClicks int

	// KeystrokeTimeout is the maximum gap between keystrokes in the phrase.
	KeystrokeTimeout time.Duration

	// ClickTimeout is the maximum gap between rapid clicks.
	ClickTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "jobdeck"),
			Password:        getEnv("DB_PASSWORD", "jobdeck"),
			Name:            getEnv("DB_NAME", "jobdeck"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			SessionTTL: getEnvDuration("SESSION_TTL", 720*time.Hour),
		},

		Credits: CreditsConfig{
			GuestResetWindow:   getEnvDuration("GUEST_RESET_WINDOW", 3*time.Hour),
			AccountResetWindow: getEnvDuration("ACCOUNT_RESET_WINDOW", 3*time.Hour),
			FreeTierCredits:    getEnvInt("FREE_TIER_CREDITS", 5),
			PremiumTierCredits: getEnvInt("PREMIUM_TIER_CREDITS", 50),
		},

		Admin: AdminConfig{
			Secret:           getEnv("ADMIN_SECRET", ""),
			MaxAttempts:      getEnvInt("ADMIN_MAX_ATTEMPTS", 3),
			LockoutDuration:  getEnvDuration("ADMIN_LOCKOUT_DURATION", 5*time.Minute),
			SessionTTL:       getEnvDuration("ADMIN_SESSION_TTL", 12*time.Hour),
			ActivationPhrase: getEnv("ADMIN_ACTIVATION_PHRASE", "iamthejobmaster"),
			ActivationClicks: getEnvInt("ADMIN_ACTIVATION_CLICKS", 7),
			KeystrokeTimeout: getEnvDuration("ADMIN_KEYSTROKE_TIMEOUT", 2*time.Second),
			ClickTimeout:     getEnvDuration("ADMIN_CLICK_TIMEOUT", time.Second),
		},
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Admin.Secret == "" {
			return nil, fmt.Errorf("ADMIN_SECRET is required in production")
		}
		if len(cfg.Admin.Secret) < 12 {
			return nil, fmt.Errorf("ADMIN_SECRET must be at least 12 characters in production")
		}
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Admin.Secret == "" {
		cfg.Admin.Secret = "dev-admin-secret-do-not-use-in-production"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "3h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
