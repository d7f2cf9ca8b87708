package audit

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Store persists audit entries in Postgres. Used by the worker.
type Store struct {
	db *sql.DB
}

// NewStore creates a store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert writes one audit row. Details are stored as JSON text.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	var details any
	if e.Details != nil {
		raw, err := json.Marshal(e.Details)
		if err == nil {
			details = string(raw)
		}
	}
	var userID any
	if e.UserID != 0 {
		userID = e.UserID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, details, ip_address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.ID, userID, e.Action, e.EntityType, e.EntityID, details, e.IPAddress, e.CreatedAt)
	return err
}
