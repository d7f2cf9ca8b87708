// Package attendance owns the attendance ledger and the marking
// transaction that feeds it.
package attendance

import "time"

// Status of a ledger entry. A record is created PRESENT by the marking
// flow and only moves between these values by explicit teacher/admin
// correction afterwards.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}

// Record is one attendance outcome: a single row per (student, session,
// UTC calendar day). Teacher, division, batch and location are denormalized
// from the session at marking time.
type Record struct {
	ID           int64     `json:"id"`
	TimetableID  int64     `json:"timetable_id"`
	StudentID    int64     `json:"student_id"`
	EnrollmentID int64     `json:"enrollment_id"`
	TeacherID    int64     `json:"teacher_id"`
	DivisionID   int64     `json:"division_id"`
	BatchID      *int64    `json:"batch_id,omitempty"`
	LocationID   *int64    `json:"location_id,omitempty"`
	MarkedAt     time.Time `json:"marked_at"`
	Status       Status    `json:"status"`
	DeviceInfo   *string   `json:"device_info,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// utcDayStart truncates t to the start of its UTC calendar day. The
// duplicate-prevention window is the UTC day, not a rolling 24h window.
func utcDayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
