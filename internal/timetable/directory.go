// Package timetable is the read-only session directory. Sessions and
// locations are owned by administrative CRUD elsewhere; the core only
// reads them.
package timetable

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Session is one recurring scheduled class slot.
type Session struct {
	ID           int64     `json:"id"`
	DivisionID   int64     `json:"division_id"`
	TeacherID    int64     `json:"teacher_id"`
	LocationID   *int64    `json:"location_id,omitempty"`
	BatchID      *int64    `json:"batch_id,omitempty"`
	Subject      string    `json:"subject"`
	DayOfWeek    string    `json:"day_of_week"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	Semester     int       `json:"semester"`
	AcademicYear string    `json:"academic_year"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Location is a teaching room, optionally carrying a geofence. Geofencing
// is opt-in per location: it applies only when latitude, longitude and
// radius are all set.
type Location struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	RadiusM   *int     `json:"radius_m,omitempty"`
}

// HasGeofence reports whether the location carries a complete geofence.
func (l *Location) HasGeofence() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil && l.RadiusM != nil
}

// Directory reads sessions and locations from Postgres.
type Directory struct {
	db *sql.DB
}

// NewDirectory creates a directory.
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// Session returns the session by id, or nil when absent.
func (d *Directory) Session(ctx context.Context, id int64) (*Session, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, division_id, teacher_id, location_id, batch_id, subject,
		       day_of_week, start_time, end_time, semester, academic_year, is_active, created_at
		FROM timetables WHERE id = $1
	`, id)
	var s Session
	if err := row.Scan(&s.ID, &s.DivisionID, &s.TeacherID, &s.LocationID, &s.BatchID, &s.Subject,
		&s.DayOfWeek, &s.StartTime, &s.EndTime, &s.Semester, &s.AcademicYear, &s.IsActive, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Location returns the location by id, or nil when absent.
func (d *Directory) Location(ctx context.Context, id int64) (*Location, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, latitude, longitude, radius_m
		FROM locations WHERE id = $1
	`, id)
	var l Location
	if err := row.Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.RadiusM); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
