package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AuditEventRepository defines the data access contract for the admin
// audit trail.
type AuditEventRepository interface {
	// Log inserts a new audit event.
	Log(ctx context.Context, event *AuditEvent) error

	// ListRecent returns the most recent events, optionally filtered by
	// type, newest first.
	ListRecent(ctx context.Context, eventType string, limit int) ([]AuditEvent, error)

	// CountRecentByClient returns how many events of a type a client
	// produced within the window. Used to spot automated probing beyond
	// what the lockout already absorbs.
	CountRecentByClient(ctx context.Context, clientID, eventType string, since time.Duration) (int, error)
}

// auditEventRepository implements AuditEventRepository with MariaDB.
type auditEventRepository struct {
	db *sql.DB
}

// NewAuditEventRepository creates a repository backed by the given pool.
func NewAuditEventRepository(db *sql.DB) AuditEventRepository {
	return &auditEventRepository{db: db}
}

// Log inserts a new audit event. Details are serialized to JSON.
func (r *auditEventRepository) Log(ctx context.Context, event *AuditEvent) error {
	query := `INSERT INTO admin_events (event_type, client_id, ip_address, details, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	var detailsJSON []byte
	if event.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshaling audit event details: %w", err)
		}
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		event.EventType, event.ClientID, event.IPAddress,
		detailsJSON, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}

	id, _ := result.LastInsertId()
	event.ID = id
	return nil
}

// ListRecent returns the newest audit events.
func (r *auditEventRepository) ListRecent(ctx context.Context, eventType string, limit int) ([]AuditEvent, error) {
	query := `SELECT id, event_type, client_id, ip_address, details, created_at
	          FROM admin_events`

	args := []any{}
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var detailsJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.EventType, &e.ClientID, &e.IPAddress, &detailsJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}

		if detailsJSON.Valid && detailsJSON.String != "" {
			if jsonErr := json.Unmarshal([]byte(detailsJSON.String), &e.Details); jsonErr != nil {
				e.Details = map[string]any{"_parse_error": "invalid JSON"}
			}
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}

	return events, nil
}

// CountRecentByClient returns the number of events of a type from a client
// within the window.
func (r *auditEventRepository) CountRecentByClient(ctx context.Context, clientID, eventType string, since time.Duration) (int, error) {
	query := `SELECT COUNT(*) FROM admin_events
	          WHERE client_id = ? AND event_type = ?
	          AND created_at >= DATE_SUB(NOW(), INTERVAL ? SECOND)`

	var count int
	if err := r.db.QueryRowContext(ctx, query, clientID, eventType, int(since.Seconds())).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting recent events by client: %w", err)
	}

	return count, nil
}
