// Package user is the read-only user directory consumed by login and the
// history endpoint. User management itself is external CRUD.
package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Vishal-43/smart-attendece-system/internal/auth"
)

// User is an account known to the system.
type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CheckPassword compares a candidate password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Directory reads users from Postgres.
type Directory struct {
	db *sql.DB
}

// NewDirectory creates a directory.
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// ByID returns the user by id, or nil when absent.
func (d *Directory) ByID(ctx context.Context, id int64) (*User, error) {
	return d.one(ctx, `WHERE id = $1`, id)
}

// ByEmail returns the user by email, or nil when absent.
func (d *Directory) ByEmail(ctx context.Context, email string) (*User, error) {
	return d.one(ctx, `WHERE email = $1`, email)
}

func (d *Directory) one(ctx context.Context, where string, arg any) (*User, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, password_hash, role, is_active, created_at
		FROM users `+where, arg)
	var u User
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
