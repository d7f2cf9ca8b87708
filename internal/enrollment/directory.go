// Package enrollment is the read-only enrollment directory.
package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Status values for an enrollment.
const (
	StatusActive    = "active"
	StatusDropout   = "dropout"
	StatusGraduated = "graduated"
)

// Enrollment is a student's membership in a division for an academic year.
type Enrollment struct {
	ID           int64     `json:"id"`
	StudentID    int64     `json:"student_id"`
	DivisionID   int64     `json:"division_id"`
	AcademicYear string    `json:"academic_year"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Directory reads enrollments from Postgres.
type Directory struct {
	db *sql.DB
}

// NewDirectory creates a directory.
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// ActiveForDivision returns the student's active enrollment in the given
// division, or nil when there is none.
func (d *Directory) ActiveForDivision(ctx context.Context, studentID, divisionID int64) (*Enrollment, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, student_id, division_id, academic_year, status, created_at
		FROM student_enrollments
		WHERE student_id = $1 AND division_id = $2 AND status = $3
	`, studentID, divisionID, StatusActive)
	var e Enrollment
	if err := row.Scan(&e.ID, &e.StudentID, &e.DivisionID, &e.AcademicYear, &e.Status, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
