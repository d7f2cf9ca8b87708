package attendance

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Vishal-43/smart-attendece-system/internal/apperr"
	"github.com/Vishal-43/smart-attendece-system/internal/auth"
	"github.com/Vishal-43/smart-attendece-system/internal/enrollment"
	"github.com/Vishal-43/smart-attendece-system/internal/timetable"
	"github.com/Vishal-43/smart-attendece-system/internal/verification"
)

// --- fakes -----------------------------------------------------------------

type fakeSessions struct {
	sessions  map[int64]*timetable.Session
	locations map[int64]*timetable.Location
}

func (f *fakeSessions) Session(_ context.Context, id int64) (*timetable.Session, error) {
	return f.sessions[id], nil
}

func (f *fakeSessions) Location(_ context.Context, id int64) (*timetable.Location, error) {
	return f.locations[id], nil
}

type fakeEnrollments struct {
	active map[int64]int64 // student id -> division id
	ids    map[int64]int64 // student id -> enrollment id
}

func (f *fakeEnrollments) ActiveForDivision(_ context.Context, studentID, divisionID int64) (*enrollment.Enrollment, error) {
	if f.active[studentID] != divisionID {
		return nil, nil
	}
	return &enrollment.Enrollment{ID: f.ids[studentID], StudentID: studentID, DivisionID: divisionID, Status: enrollment.StatusActive}, nil
}

type fakeCodes struct {
	codes []verification.Code
}

func (f *fakeCodes) FindByValue(_ context.Context, timetableID int64, kind verification.Kind, value string) (*verification.Code, error) {
	for i := range f.codes {
		c := &f.codes[i]
		if c.TimetableID == timetableID && c.Kind == kind && c.Value == value {
			return c, nil
		}
	}
	return nil, nil
}

type fakeLedger struct {
	records  []Record
	nextID   int64
	codeUses map[int64]int
}

func (f *fakeLedger) FindForDay(_ context.Context, timetableID, studentID int64, at time.Time) (*Record, error) {
	start := utcDayStart(at)
	for i := range f.records {
		r := &f.records[i]
		if r.TimetableID == timetableID && r.StudentID == studentID && !r.MarkedAt.Before(start) {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) CreateWithCodeUse(_ context.Context, rec Record, codeID int64) (Record, error) {
	f.nextID++
	rec.ID = f.nextID
	rec.CreatedAt = rec.MarkedAt
	rec.UpdatedAt = rec.MarkedAt
	f.records = append(f.records, rec)
	if f.codeUses == nil {
		f.codeUses = map[int64]int{}
	}
	f.codeUses[codeID]++
	return rec, nil
}

func (f *fakeLedger) Get(_ context.Context, id int64) (*Record, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) UpdateStatus(_ context.Context, id int64, status Status, now time.Time) (Record, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].Status = status
			f.records[i].UpdatedAt = now
			return f.records[i], nil
		}
	}
	return Record{}, nil
}

func (f *fakeLedger) History(_ context.Context, studentID int64, _ HistoryFilter) ([]Record, int, error) {
	var res []Record
	for _, r := range f.records {
		if r.StudentID == studentID {
			res = append(res, r)
		}
	}
	return res, len(res), nil
}

func (f *fakeLedger) ForSessionOn(_ context.Context, timetableID int64, day time.Time) ([]Record, error) {
	start := utcDayStart(day)
	var res []Record
	for _, r := range f.records {
		if r.TimetableID == timetableID && !r.MarkedAt.Before(start) && r.MarkedAt.Before(start.Add(24*time.Hour)) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (f *fakeLedger) List(_ context.Context, _, _ int) ([]Record, int, error) {
	return f.records, len(f.records), nil
}

// --- fixture ---------------------------------------------------------------

var (
	admin   = auth.Identity{UserID: 1, Role: auth.RoleAdmin}
	teacher = auth.Identity{UserID: 100, Role: auth.RoleTeacher}
	rival   = auth.Identity{UserID: 101, Role: auth.RoleTeacher}
	student = auth.Identity{UserID: 200, Role: auth.RoleStudent}
)

type fixture struct {
	svc      *Service
	ledger   *fakeLedger
	codes    *fakeCodes
	sessions *fakeSessions
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC)
	locID := int64(7)
	batchID := int64(3)
	lat, lon, radius := 19.0760, 72.8777, 50

	sessions := &fakeSessions{
		sessions: map[int64]*timetable.Session{
			// geofenced session
			1: {ID: 1, DivisionID: 5, TeacherID: 100, LocationID: &locID, BatchID: &batchID, IsActive: true},
			// inactive session
			2: {ID: 2, DivisionID: 5, TeacherID: 100, IsActive: false},
			// active session without a location
			3: {ID: 3, DivisionID: 5, TeacherID: 100, IsActive: true},
		},
		locations: map[int64]*timetable.Location{
			7: {ID: 7, Name: "Lab 1", Latitude: &lat, Longitude: &lon, RadiusM: &radius},
		},
	}
	enrollments := &fakeEnrollments{
		active: map[int64]int64{200: 5},
		ids:    map[int64]int64{200: 900},
	}
	codes := &fakeCodes{codes: []verification.Code{
		{ID: 10, TimetableID: 1, Kind: verification.KindQR, Value: "valid-token", CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(9 * time.Minute)},
		{ID: 11, TimetableID: 1, Kind: verification.KindQR, Value: "stale-token", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-30 * time.Minute)},
		{ID: 12, TimetableID: 3, Kind: verification.KindOTP, Value: "482913", CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(4 * time.Minute)},
	}}
	ledger := &fakeLedger{}
	svc := NewService(ledger, sessions, enrollments, codes, nil, func() time.Time { return now })
	return &fixture{svc: svc, ledger: ledger, codes: codes, sessions: sessions, now: now}
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) markReq() MarkRequest {
	return MarkRequest{
		TimetableID: 1,
		Method:      "qr",
		Code:        "valid-token",
		Latitude:    ptr(19.0761),
		Longitude:   ptr(72.8777),
	}
}

// --- mark ------------------------------------------------------------------

func TestMark_Success(t *testing.T) {
	f := newFixture(t)
	rec, err := f.svc.Mark(context.Background(), student, f.markReq(), "1.2.3.4")
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if rec.Status != StatusPresent {
		t.Fatalf("status = %s, expected present", rec.Status)
	}
	if rec.TeacherID != 100 || rec.DivisionID != 5 {
		t.Fatalf("denormalized fields wrong: teacher=%d division=%d", rec.TeacherID, rec.DivisionID)
	}
	if rec.BatchID == nil || *rec.BatchID != 3 {
		t.Fatalf("batch not denormalized: %v", rec.BatchID)
	}
	if rec.EnrollmentID != 900 {
		t.Fatalf("enrollment id = %d, expected 900", rec.EnrollmentID)
	}
	if !rec.MarkedAt.Equal(f.now) {
		t.Fatalf("marked_at = %v, expected %v", rec.MarkedAt, f.now)
	}
	if f.ledger.codeUses[10] != 1 {
		t.Fatalf("code use count not incremented: %v", f.ledger.codeUses)
	}
}

func TestMark_WithoutGeofenceSkipsCoordinateCheck(t *testing.T) {
	f := newFixture(t)
	req := MarkRequest{TimetableID: 3, Method: "otp", Code: "482913"}
	rec, err := f.svc.Mark(context.Background(), student, req, "")
	if err != nil {
		t.Fatalf("Mark without coordinates on unfenced session: %v", err)
	}
	if rec.Status != StatusPresent {
		t.Fatalf("status = %s, expected present", rec.Status)
	}
}

func TestMark_MissingFields(t *testing.T) {
	f := newFixture(t)
	cases := []MarkRequest{
		{Method: "qr", Code: "x"},
		{TimetableID: 1, Code: "x"},
		{TimetableID: 1, Method: "qr"},
		{TimetableID: 1, Method: "sms", Code: "x"},
	}
	for i, req := range cases {
		_, err := f.svc.Mark(context.Background(), student, req, "")
		if !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("case %d: error = %v, expected validation", i, err)
		}
	}
}

func TestMark_UnknownSession(t *testing.T) {
	f := newFixture(t)
	req := f.markReq()
	req.TimetableID = 99
	if _, err := f.svc.Mark(context.Background(), student, req, ""); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("error = %v, expected not found", err)
	}
}

func TestMark_InactiveSessionForbiddenRegardlessOfCode(t *testing.T) {
	f := newFixture(t)
	req := f.markReq()
	req.TimetableID = 2
	if _, err := f.svc.Mark(context.Background(), student, req, ""); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("error = %v, expected forbidden", err)
	}
}

func TestMark_NotEnrolledForbidden(t *testing.T) {
	f := newFixture(t)
	outsider := auth.Identity{UserID: 201, Role: auth.RoleStudent}
	if _, err := f.svc.Mark(context.Background(), outsider, f.markReq(), ""); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("error = %v, expected forbidden", err)
	}
}

func TestMark_DuplicateSameDayConflict(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Mark(context.Background(), student, f.markReq(), "")
	if err != nil {
		t.Fatalf("first mark: %v", err)
	}
	_, err = f.svc.Mark(context.Background(), student, f.markReq(), "")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("second mark: error = %v, expected conflict", err)
	}
	// First record untouched.
	got, _ := f.ledger.Get(context.Background(), first.ID)
	if got == nil || got.Status != StatusPresent || !got.MarkedAt.Equal(first.MarkedAt) {
		t.Fatalf("first record changed by rejected duplicate: %+v", got)
	}
}

func TestMark_InvalidCode(t *testing.T) {
	f := newFixture(t)
	req := f.markReq()
	req.Code = "no-such-token"
	_, err := f.svc.Mark(context.Background(), student, req, "")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("error = %v, expected validation", err)
	}
}

func TestMark_WrongMethodForCode(t *testing.T) {
	// A QR token presented as an OTP must not match.
	f := newFixture(t)
	req := f.markReq()
	req.Method = "otp"
	_, err := f.svc.Mark(context.Background(), student, req, "")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("error = %v, expected validation", err)
	}
}

func TestMark_ExpiredCodeRejectedEvenIfUnused(t *testing.T) {
	f := newFixture(t)
	req := f.markReq()
	req.Code = "stale-token"
	_, err := f.svc.Mark(context.Background(), student, req, "")
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindValidation {
		t.Fatalf("error = %v, expected validation", err)
	}
	if !strings.Contains(e.Message, "expired") {
		t.Fatalf("message %q does not mention expiry", e.Message)
	}
}

func TestMark_GeofenceCoordinatesRequired(t *testing.T) {
	f := newFixture(t)
	req := f.markReq()
	req.Latitude, req.Longitude = nil, nil
	_, err := f.svc.Mark(context.Background(), student, req, "")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("error = %v, expected validation (coordinates required)", err)
	}
}

func TestMark_OutsideGeofenceForbiddenWithDistance(t *testing.T) {
	f := newFixture(t)
	req := f.markReq()
	// ~1.1km north of the location, radius is 50m.
	req.Latitude = ptr(19.0860)
	_, err := f.svc.Mark(context.Background(), student, req, "")
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindForbidden {
		t.Fatalf("error = %v, expected forbidden", err)
	}
	if !strings.Contains(e.Message, "away") || !strings.Contains(e.Message, "max 50m") {
		t.Fatalf("message %q does not carry distance and radius", e.Message)
	}
}

func TestMark_GeofenceSkippedWhenLocationIncomplete(t *testing.T) {
	f := newFixture(t)
	// Location exists but has no radius configured.
	lat, lon := 19.0760, 72.8777
	f.sessions.locations[7] = &timetable.Location{ID: 7, Name: "Lab 1", Latitude: &lat, Longitude: &lon}
	req := f.markReq()
	req.Latitude, req.Longitude = nil, nil
	if _, err := f.svc.Mark(context.Background(), student, req, ""); err != nil {
		t.Fatalf("geofence should be skipped without a radius: %v", err)
	}
}

// --- update status ---------------------------------------------------------

func markOne(t *testing.T, f *fixture) Record {
	t.Helper()
	rec, err := f.svc.Mark(context.Background(), student, f.markReq(), "")
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	return rec
}

func TestUpdateStatus_Transitions(t *testing.T) {
	f := newFixture(t)
	rec := markOne(t, f)
	for _, status := range []Status{StatusLate, StatusAbsent, StatusPresent, StatusPresent} {
		updated, err := f.svc.UpdateStatus(context.Background(), teacher, rec.ID, status, "")
		if err != nil {
			t.Fatalf("UpdateStatus(%s): %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("status = %s, expected %s", updated.Status, status)
		}
	}
}

func TestUpdateStatus_Validation(t *testing.T) {
	f := newFixture(t)
	rec := markOne(t, f)
	if _, err := f.svc.UpdateStatus(context.Background(), teacher, rec.ID, "", ""); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("empty status: error = %v, expected validation", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), teacher, rec.ID, "excused", ""); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("unknown status: error = %v, expected validation", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), teacher, 999, StatusLate, ""); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown record: error = %v, expected not found", err)
	}
}

func TestUpdateStatus_OnlyOwnTeacherOrAdmin(t *testing.T) {
	f := newFixture(t)
	rec := markOne(t, f)
	if _, err := f.svc.UpdateStatus(context.Background(), rival, rec.ID, StatusLate, ""); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("other teacher: error = %v, expected forbidden", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), admin, rec.ID, StatusLate, ""); err != nil {
		t.Fatalf("admin: %v", err)
	}
}

// --- reads -----------------------------------------------------------------

func TestHistory_StudentSelfOnly(t *testing.T) {
	f := newFixture(t)
	markOne(t, f)
	if _, err := f.svc.History(context.Background(), student, 999, HistoryQuery{}); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("student reading another user: error = %v, expected forbidden", err)
	}
	page, err := f.svc.History(context.Background(), student, student.UserID, HistoryQuery{})
	if err != nil {
		t.Fatalf("self history: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("history total = %d items = %d, expected 1/1", page.Total, len(page.Items))
	}
	if page.Pages != 1 {
		t.Fatalf("pages = %d, expected 1", page.Pages)
	}
	if _, err := f.svc.History(context.Background(), teacher, student.UserID, HistoryQuery{}); err != nil {
		t.Fatalf("teacher reading a student: %v", err)
	}
}

func TestSessionAttendance(t *testing.T) {
	f := newFixture(t)
	markOne(t, f)
	if _, err := f.svc.SessionAttendance(context.Background(), rival, 1, nil); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("other teacher: expected forbidden")
	}
	sum, err := f.svc.SessionAttendance(context.Background(), teacher, 1, nil)
	if err != nil {
		t.Fatalf("SessionAttendance: %v", err)
	}
	if sum.TotalPresent != 1 {
		t.Fatalf("total_present = %d, expected 1", sum.TotalPresent)
	}
	if sum.Date != "2026-03-09" {
		t.Fatalf("date = %q, expected 2026-03-09", sum.Date)
	}
	if _, err := f.svc.SessionAttendance(context.Background(), teacher, 42, nil); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown session: expected not found")
	}
}

func TestList_AdminOnly(t *testing.T) {
	f := newFixture(t)
	markOne(t, f)
	if _, err := f.svc.List(context.Background(), teacher, 1, 50); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("teacher list: expected forbidden")
	}
	page, err := f.svc.List(context.Background(), admin, 1, 50)
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("total = %d, expected 1", page.Total)
	}
}
