package credits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/jobdeck/jobdeck/internal/apperror"
)

// ProfileRepository defines the data access contract for credit profiles.
// Mutations that race across processes (consume, replenish) are guarded
// queries: the WHERE clause carries the expected prior state, and a zero
// rows-affected result reports the miss instead of clobbering.
type ProfileRepository interface {
	Create(ctx context.Context, profile *Profile) error
	FindByUserID(ctx context.Context, userID string) (*Profile, error)

	// UpdateCreditsCAS moves credits from expected to next for the user,
	// setting (or clearing, when nil) the reset deadline in the same
	// statement. Returns false without error when the stored credits no
	// longer equal expected.
	UpdateCreditsCAS(ctx context.Context, userID string, expected, next int, resetAt *time.Time) (bool, error)

	// Replenish restores an exhausted profile to the given amount and
	// clears the deadline. Guarded on credits = 0 with a set deadline, so
	// concurrent replenishers apply at most once.
	Replenish(ctx context.Context, userID string, credits int) (bool, error)

	UpdateLastSeen(ctx context.Context, userID string) error
	UpdateTier(ctx context.Context, userID string, tier Tier) error
}

// profileRepository implements ProfileRepository with hand-written MariaDB
// queries.
type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a profile repository backed by the given pool.
func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create inserts a new credit profile row.
func (r *profileRepository) Create(ctx context.Context, profile *Profile) error {
	query := `INSERT INTO credit_profiles (user_id, tier, credits, credits_reset_at, last_seen_at, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		profile.UserID,
		string(profile.Tier),
		profile.Credits,
		profile.CreditsResetAt,
		profile.LastSeenAt,
		profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting credit profile: %w", err)
	}

	return nil
}

// FindByUserID retrieves the credit profile for a user.
// Returns apperror.NotFound if the profile doesn't exist yet.
func (r *profileRepository) FindByUserID(ctx context.Context, userID string) (*Profile, error) {
	query := `SELECT user_id, tier, credits, credits_reset_at, last_seen_at, created_at
	          FROM credit_profiles WHERE user_id = ?`

	profile := &Profile{}
	var tier string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&tier,
		&profile.Credits,
		&profile.CreditsResetAt,
		&profile.LastSeenAt,
		&profile.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("credit profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying credit profile: %w", err)
	}

	profile.Tier = Tier(tier)
	return profile, nil
}

// UpdateCreditsCAS performs the compare-and-swap decrement/update.
func (r *profileRepository) UpdateCreditsCAS(ctx context.Context, userID string, expected, next int, resetAt *time.Time) (bool, error) {
	query := `UPDATE credit_profiles SET credits = ?, credits_reset_at = ?
	          WHERE user_id = ? AND credits = ?`

	result, err := r.db.ExecContext(ctx, query, next, resetAt, userID, expected)
	if err != nil {
		return false, fmt.Errorf("updating credits: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}

// Replenish restores credits for an exhausted profile.
func (r *profileRepository) Replenish(ctx context.Context, userID string, credits int) (bool, error) {
	query := `UPDATE credit_profiles SET credits = ?, credits_reset_at = NULL
	          WHERE user_id = ? AND credits = 0 AND credits_reset_at IS NOT NULL`

	result, err := r.db.ExecContext(ctx, query, credits, userID)
	if err != nil {
		return false, fmt.Errorf("replenishing credits: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateLastSeen refreshes the bookkeeping timestamp for the given user.
func (r *profileRepository) UpdateLastSeen(ctx context.Context, userID string) error {
	query := `UPDATE credit_profiles SET last_seen_at = NOW() WHERE user_id = ?`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("updating last seen: %w", err)
	}

	return nil
}

// UpdateTier changes the subscription tier for a user.
func (r *profileRepository) UpdateTier(ctx context.Context, userID string, tier Tier) error {
	query := `UPDATE credit_profiles SET tier = ? WHERE user_id = ?`

	result, err := r.db.ExecContext(ctx, query, string(tier), userID)
	if err != nil {
		return fmt.Errorf("updating tier: %w", err)
	}

	// The driver reports rows changed, not rows matched: zero either means
	// no such profile or a tier that already had this value. Only the
	// former is an error.
	n, _ := result.RowsAffected()
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM credit_profiles WHERE user_id = ?)`, userID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("checking profile existence: %w", err)
		}
		if !exists {
			return apperror.NewNotFound("credit profile not found")
		}
	}

	return nil
}

// isDuplicateEntry reports whether err is the MySQL duplicate-key error
// (1062). First-login profile creation races resolve through this check.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
