package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const recordColumns = `id, timetable_id, student_id, enrollment_id, teacher_id, division_id,
	batch_id, location_id, marked_at, status, device_info, created_at, updated_at`

// ErrDuplicateDay is returned when the daily uniqueness index rejects an
// insert that raced past the application-level duplicate check.
var ErrDuplicateDay = errors.New("attendance already recorded for this day")

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindForDay returns the student's record for the session on the UTC day
// containing at, or nil when there is none.
func (r *Repository) FindForDay(ctx context.Context, timetableID, studentID int64, at time.Time) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE timetable_id = $1 AND student_id = $2 AND marked_at >= $3 AND marked_at < $4
		ORDER BY marked_at DESC
		LIMIT 1
	`, timetableID, studentID, utcDayStart(at), utcDayStart(at).Add(24*time.Hour))
	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CreateWithCodeUse inserts the record and increments the verification
// code's used_count in one transaction: either both persist or neither.
func (r *Repository) CreateWithCodeUse(ctx context.Context, rec Record, codeID int64) (Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(timetable_id, student_id, enrollment_id, teacher_id, division_id,
			 batch_id, location_id, marked_at, status, device_info)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at
	`, rec.TimetableID, rec.StudentID, rec.EnrollmentID, rec.TeacherID, rec.DivisionID,
		rec.BatchID, rec.LocationID, rec.MarkedAt, rec.Status, rec.DeviceInfo)
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrDuplicateDay
		}
		return Record{}, fmt.Errorf("insert record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE verification_codes SET used_count = used_count + 1 WHERE id = $1
	`, codeID); err != nil {
		return Record{}, fmt.Errorf("increment code use: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get returns a record by id, or nil when absent.
func (r *Repository) Get(ctx context.Context, id int64) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE id = $1
	`, id)
	return scanRecord(row)
}

// UpdateStatus sets a new status on an existing record.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status, now time.Time) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance_records SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+recordColumns+`
	`, id, status, now)
	rec, err := scanRecord(row)
	if err != nil {
		return Record{}, err
	}
	if rec == nil {
		return Record{}, sql.ErrNoRows
	}
	return *rec, nil
}

// HistoryFilter narrows a student's history listing.
type HistoryFilter struct {
	TimetableID *int64
	StartDate   *time.Time
	EndDate     *time.Time
	Page        int
	Limit       int
}

// History returns the student's records newest-first plus the total count.
func (r *Repository) History(ctx context.Context, studentID int64, f HistoryFilter) ([]Record, int, error) {
	where := `WHERE student_id = $1`
	args := []any{studentID}
	if f.TimetableID != nil {
		args = append(args, *f.TimetableID)
		where += fmt.Sprintf(" AND timetable_id = $%d", len(args))
	}
	if f.StartDate != nil {
		args = append(args, utcDayStart(*f.StartDate))
		where += fmt.Sprintf(" AND marked_at >= $%d", len(args))
	}
	if f.EndDate != nil {
		args = append(args, utcDayStart(*f.EndDate).Add(24*time.Hour))
		where += fmt.Sprintf(" AND marked_at < $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM attendance_records `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records `+where+`
		ORDER BY marked_at DESC
		LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	recs, err := collectRecords(rows)
	return recs, total, err
}

// ForSessionOn returns all records for the session on the given UTC day,
// oldest first.
func (r *Repository) ForSessionOn(ctx context.Context, timetableID int64, day time.Time) ([]Record, error) {
	start := utcDayStart(day)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE timetable_id = $1 AND marked_at >= $2 AND marked_at < $3
		ORDER BY marked_at ASC
	`, timetableID, start, start.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// List returns all records newest-first plus the total count.
func (r *Repository) List(ctx context.Context, page, limit int) ([]Record, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM attendance_records`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		ORDER BY marked_at DESC
		LIMIT $1 OFFSET $2
	`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	recs, err := collectRecords(rows)
	return recs, total, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row *sql.Row) (*Record, error) {
	var rec Record
	if err := scanInto(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func scanInto(s rowScanner, rec *Record) error {
	return s.Scan(&rec.ID, &rec.TimetableID, &rec.StudentID, &rec.EnrollmentID, &rec.TeacherID,
		&rec.DivisionID, &rec.BatchID, &rec.LocationID, &rec.MarkedAt, &rec.Status,
		&rec.DeviceInfo, &rec.CreatedAt, &rec.UpdatedAt)
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := scanInto(rows, &rec); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
