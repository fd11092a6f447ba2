package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// Ledger stores attendance events in PostgreSQL. The duplicate check and
// the append run inside one transaction holding a per-user advisory
// lock, so concurrent detections of the same user cannot both pass the
// cooldown check.
type Ledger struct {
	pool     *pgxpool.Pool
	cooldown time.Duration
}

// NewLedger creates a PostgreSQL-backed attendance ledger.
func NewLedger(pool *pgxpool.Pool, cooldown time.Duration) *Ledger {
	return &Ledger{pool: pool, cooldown: cooldown}
}

// Log appends a new event unless the user has one inside the cooldown
// window. Returns true when a new event was written.
func (l *Ledger) Log(ctx context.Context, userID, source string, now time.Time) (bool, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: beginning transaction: %v", store.ErrLedgerWriteFailed, err)
	}
	defer tx.Rollback(ctx)

	// Serialize Log calls for this user; released at commit/rollback.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", userID); err != nil {
		return false, fmt.Errorf("%w: acquiring user lock: %v", store.ErrLedgerWriteFailed, err)
	}

	var last time.Time
	err = tx.QueryRow(ctx, `
		SELECT logged_at FROM attendance_events
		WHERE user_id = $1
		ORDER BY logged_at DESC
		LIMIT 1
	`, userID).Scan(&last)
	switch {
	case err == nil:
		if now.Sub(last) < l.cooldown {
			return false, nil
		}
	case errors.Is(err, pgx.ErrNoRows):
		// First event for this user.
	default:
		return false, fmt.Errorf("%w: checking last event: %v", store.ErrLedgerWriteFailed, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO attendance_events (id, user_id, logged_at, source)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), userID, now.UTC(), source); err != nil {
		return false, fmt.Errorf("%w: inserting event: %v", store.ErrLedgerWriteFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%w: committing event: %v", store.ErrLedgerWriteFailed, err)
	}
	return true, nil
}

// LastEvent returns the most recent event for a user, or nil.
func (l *Ledger) LastEvent(ctx context.Context, userID string) (*store.Event, error) {
	var e store.Event
	err := l.pool.QueryRow(ctx, `
		SELECT id, user_id, logged_at, source
		FROM attendance_events
		WHERE user_id = $1
		ORDER BY logged_at DESC
		LIMIT 1
	`, userID).Scan(&e.ID, &e.UserID, &e.LoggedAt, &e.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last event: %w", err)
	}
	return &e, nil
}

// Records returns matching events ordered by timestamp ascending.
func (l *Ledger) Records(ctx context.Context, filter store.RecordFilter) ([]store.Event, error) {
	query := `
		SELECT id, user_id, logged_at, source
		FROM attendance_events
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2::timestamptz IS NULL OR logged_at >= $2)
		  AND ($3::timestamptz IS NULL OR logged_at <= $3)
		ORDER BY logged_at ASC
	`
	var start, end *time.Time
	if !filter.Start.IsZero() {
		start = &filter.Start
	}
	if !filter.End.IsZero() {
		end = &filter.End
	}

	rows, err := l.pool.Query(ctx, query, filter.UserID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := make([]store.Event, 0)
	for rows.Next() {
		var e store.Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.LoggedAt, &e.Source); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
