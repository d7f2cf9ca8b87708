package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists verification codes in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Rotate expires every still-valid code of the kind for the session and
// inserts a fresh one, inside a single transaction. Expiry is soft: the
// superseded rows get expires_at = now and stay in place for audit.
func (r *Repository) Rotate(ctx context.Context, timetableID int64, kind Kind, value string, now time.Time, ttl time.Duration) (Code, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Code{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE verification_codes SET expires_at = $3
		WHERE timetable_id = $1 AND kind = $2 AND expires_at > $3
	`, timetableID, kind, now); err != nil {
		return Code{}, fmt.Errorf("expire active codes: %w", err)
	}

	code := Code{
		TimetableID: timetableID,
		Kind:        kind,
		Value:       value,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO verification_codes (timetable_id, kind, code, created_at, expires_at, used_count)
		VALUES ($1,$2,$3,$4,$5,0)
		RETURNING id
	`, code.TimetableID, code.Kind, code.Value, code.CreatedAt, code.ExpiresAt)
	if err := row.Scan(&code.ID); err != nil {
		return Code{}, fmt.Errorf("insert code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Code{}, err
	}
	return code, nil
}

// Current returns the most-recently-created unexpired code for the session
// and kind, or nil when there is none.
func (r *Repository) Current(ctx context.Context, timetableID int64, kind Kind, now time.Time) (*Code, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, timetable_id, kind, code, created_at, expires_at, used_count
		FROM verification_codes
		WHERE timetable_id = $1 AND kind = $2 AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`, timetableID, kind, now)
	return scanCode(row)
}

// FindByValue returns the code matching (session, kind, value) exactly, or
// nil when no row matches. Expiry is not checked here; the caller decides
// how to surface a stale match.
func (r *Repository) FindByValue(ctx context.Context, timetableID int64, kind Kind, value string) (*Code, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, timetable_id, kind, code, created_at, expires_at, used_count
		FROM verification_codes
		WHERE timetable_id = $1 AND kind = $2 AND code = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, timetableID, kind, value)
	return scanCode(row)
}

func scanCode(row *sql.Row) (*Code, error) {
	var c Code
	if err := row.Scan(&c.ID, &c.TimetableID, &c.Kind, &c.Value, &c.CreatedAt, &c.ExpiresAt, &c.UsedCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
