package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Vishal-43/smart-attendece-system/internal/apperr"
	"github.com/Vishal-43/smart-attendece-system/internal/audit"
	"github.com/Vishal-43/smart-attendece-system/internal/auth"
	"github.com/Vishal-43/smart-attendece-system/internal/enrollment"
	"github.com/Vishal-43/smart-attendece-system/internal/geo"
	"github.com/Vishal-43/smart-attendece-system/internal/timetable"
	"github.com/Vishal-43/smart-attendece-system/internal/verification"
)

// SessionDirectory resolves sessions and their locations.
type SessionDirectory interface {
	Session(ctx context.Context, id int64) (*timetable.Session, error)
	Location(ctx context.Context, id int64) (*timetable.Location, error)
}

// EnrollmentDirectory resolves active enrollments.
type EnrollmentDirectory interface {
	ActiveForDivision(ctx context.Context, studentID, divisionID int64) (*enrollment.Enrollment, error)
}

// CodeFinder looks up verification codes by exact value.
type CodeFinder interface {
	FindByValue(ctx context.Context, timetableID int64, kind verification.Kind, value string) (*verification.Code, error)
}

// Ledger is the persistence the service needs.
type Ledger interface {
	FindForDay(ctx context.Context, timetableID, studentID int64, at time.Time) (*Record, error)
	CreateWithCodeUse(ctx context.Context, rec Record, codeID int64) (Record, error)
	Get(ctx context.Context, id int64) (*Record, error)
	UpdateStatus(ctx context.Context, id int64, status Status, now time.Time) (Record, error)
	History(ctx context.Context, studentID int64, f HistoryFilter) ([]Record, int, error)
	ForSessionOn(ctx context.Context, timetableID int64, day time.Time) ([]Record, error)
	List(ctx context.Context, page, limit int) ([]Record, int, error)
}

// MarkRequest is a student's attempt to mark attendance.
type MarkRequest struct {
	TimetableID int64
	Method      string
	Code        string
	Latitude    *float64
	Longitude   *float64
	DeviceInfo  *string
}

// Service coordinates the marking transaction and ledger reads.
type Service struct {
	ledger      Ledger
	sessions    SessionDirectory
	enrollments EnrollmentDirectory
	codes       CodeFinder
	auditor     audit.Recorder
	now         func() time.Time
}

// NewService creates a service. now is overridable for tests; nil means
// wall clock UTC.
func NewService(ledger Ledger, sessions SessionDirectory, enrollments EnrollmentDirectory, codes CodeFinder, auditor audit.Recorder, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		ledger:      ledger,
		sessions:    sessions,
		enrollments: enrollments,
		codes:       codes,
		auditor:     auditor,
		now:         now,
	}
}

// Mark runs the marking transaction. Steps are ordered and each failure is
// a distinct mode: field validation, session active, enrollment, daily
// duplicate, code match and freshness, geofence, then the atomic commit of
// record + code use counter.
func (s *Service) Mark(ctx context.Context, student auth.Identity, req MarkRequest, clientIP string) (Record, error) {
	if req.TimetableID == 0 || req.Method == "" || req.Code == "" {
		return Record{}, apperr.Validation("timetable_id, method, and code are required")
	}
	kind := verification.Kind(req.Method)
	if !kind.Valid() {
		return Record{}, apperr.Validation("method must be 'qr' or 'otp'")
	}

	session, err := s.sessions.Session(ctx, req.TimetableID)
	if err != nil {
		return Record{}, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return Record{}, apperr.NotFound("timetable not found")
	}
	if !session.IsActive {
		return Record{}, apperr.Forbidden("this timetable session is not active")
	}

	enr, err := s.enrollments.ActiveForDivision(ctx, student.UserID, session.DivisionID)
	if err != nil {
		return Record{}, fmt.Errorf("load enrollment: %w", err)
	}
	if enr == nil {
		return Record{}, apperr.Forbidden("you are not enrolled in this division")
	}

	now := s.now()
	dup, err := s.ledger.FindForDay(ctx, req.TimetableID, student.UserID, now)
	if err != nil {
		return Record{}, fmt.Errorf("duplicate check: %w", err)
	}
	if dup != nil {
		return Record{}, apperr.Conflict("attendance already marked for this session today")
	}

	code, err := s.codes.FindByValue(ctx, req.TimetableID, kind, req.Code)
	if err != nil {
		return Record{}, fmt.Errorf("find code: %w", err)
	}
	if code == nil {
		return Record{}, apperr.Validation("invalid code")
	}
	if code.Expired(now) {
		return Record{}, apperr.Validation("code has expired")
	}

	if err := s.checkGeofence(ctx, session, req.Latitude, req.Longitude); err != nil {
		return Record{}, err
	}

	rec := Record{
		TimetableID:  req.TimetableID,
		StudentID:    student.UserID,
		EnrollmentID: enr.ID,
		TeacherID:    session.TeacherID,
		DivisionID:   session.DivisionID,
		BatchID:      session.BatchID,
		LocationID:   session.LocationID,
		MarkedAt:     now,
		Status:       StatusPresent,
		DeviceInfo:   req.DeviceInfo,
	}
	created, err := s.ledger.CreateWithCodeUse(ctx, rec, code.ID)
	if err != nil {
		if errors.Is(err, ErrDuplicateDay) {
			return Record{}, apperr.Conflict("attendance already marked for this session today")
		}
		return Record{}, fmt.Errorf("commit attendance: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		UserID:     student.UserID,
		Action:     "attendance_marked",
		EntityType: "attendance_record",
		EntityID:   strconv.FormatInt(created.ID, 10),
		Details:    map[string]any{"timetable_id": req.TimetableID, "method": req.Method},
		IPAddress:  clientIP,
	})
	return created, nil
}

// checkGeofence is a no-op unless the session's location carries a full
// geofence. Missing caller coordinates for a fenced location is a
// validation failure; being outside the fence is forbidden.
func (s *Service) checkGeofence(ctx context.Context, session *timetable.Session, lat, lon *float64) error {
	if session.LocationID == nil {
		return nil
	}
	loc, err := s.sessions.Location(ctx, *session.LocationID)
	if err != nil {
		return fmt.Errorf("load location: %w", err)
	}
	if !loc.HasGeofence() {
		return nil
	}
	if lat == nil || lon == nil {
		return apperr.Validation("GPS coordinates required for this session")
	}
	distance := geo.DistanceMeters(*lat, *lon, *loc.Latitude, *loc.Longitude)
	radius := float64(*loc.RadiusM)
	if distance > radius {
		return apperr.Forbidden("you are %.0fm away from the session location (max %dm)", distance, *loc.RadiusM)
	}
	return nil
}

// HistoryQuery narrows a history listing.
type HistoryQuery struct {
	TimetableID *int64
	StartDate   *time.Time
	EndDate     *time.Time
	Page        int
	Limit       int
}

// HistoryPage is a paginated set of records.
type HistoryPage struct {
	Items []Record `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
	Pages int      `json:"pages"`
}

// History returns a student's attendance, newest first. Students may only
// read their own history; teachers and admins may read anyone's.
func (s *Service) History(ctx context.Context, actor auth.Identity, userID int64, q HistoryQuery) (HistoryPage, error) {
	if actor.Role == auth.RoleStudent && actor.UserID != userID {
		return HistoryPage{}, apperr.Forbidden("you can only view your own attendance history")
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}
	items, total, err := s.ledger.History(ctx, userID, HistoryFilter{
		TimetableID: q.TimetableID,
		StartDate:   q.StartDate,
		EndDate:     q.EndDate,
		Page:        q.Page,
		Limit:       q.Limit,
	})
	if err != nil {
		return HistoryPage{}, fmt.Errorf("history: %w", err)
	}
	return HistoryPage{Items: items, Total: total, Page: q.Page, Limit: q.Limit, Pages: pages(total, q.Limit)}, nil
}

// SessionSummary is one session's attendance for a day.
type SessionSummary struct {
	TimetableID  int64    `json:"timetable_id"`
	Date         string   `json:"date"`
	TotalPresent int      `json:"total_present"`
	Records      []Record `json:"records"`
}

// SessionAttendance returns all records for a session on a day (default
// today). Teachers may only read their own sessions.
func (s *Service) SessionAttendance(ctx context.Context, actor auth.Identity, timetableID int64, day *time.Time) (SessionSummary, error) {
	session, err := s.sessions.Session(ctx, timetableID)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return SessionSummary{}, apperr.NotFound("timetable not found")
	}
	if actor.Role == auth.RoleTeacher && session.TeacherID != actor.UserID {
		return SessionSummary{}, apperr.Forbidden("you are not the teacher for this timetable")
	}
	target := s.now()
	if day != nil {
		target = *day
	}
	records, err := s.ledger.ForSessionOn(ctx, timetableID, target)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("session attendance: %w", err)
	}
	return SessionSummary{
		TimetableID:  timetableID,
		Date:         utcDayStart(target).Format("2006-01-02"),
		TotalPresent: len(records),
		Records:      records,
	}, nil
}

// UpdateStatus applies a teacher/admin correction to a record's status.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Identity, recordID int64, status Status, clientIP string) (Record, error) {
	if status == "" {
		return Record{}, apperr.Validation("status is required")
	}
	if !status.Valid() {
		return Record{}, apperr.Validation("status must be one of: present, absent, late")
	}
	rec, err := s.ledger.Get(ctx, recordID)
	if err != nil {
		return Record{}, fmt.Errorf("load record: %w", err)
	}
	if rec == nil {
		return Record{}, apperr.NotFound("attendance record not found")
	}
	if actor.Role == auth.RoleTeacher && rec.TeacherID != actor.UserID {
		return Record{}, apperr.Forbidden("you can only update attendance for your own sessions")
	}

	oldStatus := rec.Status
	updated, err := s.ledger.UpdateStatus(ctx, recordID, status, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, apperr.NotFound("attendance record not found")
		}
		return Record{}, fmt.Errorf("update status: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     "attendance_updated",
		EntityType: "attendance_record",
		EntityID:   strconv.FormatInt(recordID, 10),
		Details:    map[string]any{"old_status": string(oldStatus), "new_status": string(status)},
		IPAddress:  clientIP,
	})
	return updated, nil
}

// List returns all records, admin only.
func (s *Service) List(ctx context.Context, actor auth.Identity, page, limit int) (HistoryPage, error) {
	if !actor.IsAdmin() {
		return HistoryPage{}, apperr.Forbidden("access denied for role %q", actor.Role)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	items, total, err := s.ledger.List(ctx, page, limit)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("list: %w", err)
	}
	return HistoryPage{Items: items, Total: total, Page: page, Limit: limit, Pages: pages(total, limit)}, nil
}

func pages(total, limit int) int {
	if total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
