package verification

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/Vishal-43/smart-attendece-system/internal/apperr"
	"github.com/Vishal-43/smart-attendece-system/internal/audit"
	"github.com/Vishal-43/smart-attendece-system/internal/auth"
	"github.com/Vishal-43/smart-attendece-system/internal/timetable"
)

// CodeStore is the persistence the service needs.
type CodeStore interface {
	Rotate(ctx context.Context, timetableID int64, kind Kind, value string, now time.Time, ttl time.Duration) (Code, error)
	Current(ctx context.Context, timetableID int64, kind Kind, now time.Time) (*Code, error)
}

// SessionDirectory resolves sessions for authorization checks.
type SessionDirectory interface {
	Session(ctx context.Context, id int64) (*timetable.Session, error)
}

// Service issues and serves verification codes.
type Service struct {
	codes    CodeStore
	sessions SessionDirectory
	auditor  audit.Recorder
	now      func() time.Time
}

// NewService creates a service. now is overridable for tests; nil means
// wall clock UTC.
func NewService(codes CodeStore, sessions SessionDirectory, auditor audit.Recorder, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{codes: codes, sessions: sessions, auditor: auditor, now: now}
}

// Issue rotates in a new code for the session: every still-valid code of
// the same kind is expired first, then a fresh value is inserted. Both
// generate and refresh go through here; they differ only in caller intent.
func (s *Service) Issue(ctx context.Context, actor auth.Identity, timetableID int64, kind Kind, ttlMinutes int, clientIP string) (Code, error) {
	if !kind.Valid() {
		return Code{}, apperr.Validation("kind must be 'qr' or 'otp'")
	}
	if ttlMinutes < MinTTLMinutes || ttlMinutes > kind.MaxTTLMinutes() {
		return Code{}, apperr.Validation("ttl_minutes must be between %d and %d", MinTTLMinutes, kind.MaxTTLMinutes())
	}
	if err := s.authorize(ctx, actor, timetableID); err != nil {
		return Code{}, err
	}

	var value string
	if kind == KindQR {
		value = newQRValue()
	} else {
		value = newOTPValue()
	}

	now := s.now()
	code, err := s.codes.Rotate(ctx, timetableID, kind, value, now, time.Duration(ttlMinutes)*time.Minute)
	if err != nil {
		return Code{}, fmt.Errorf("rotate %s code: %w", kind, err)
	}

	s.auditor.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     string(kind) + "_code_generated",
		EntityType: "verification_code",
		EntityID:   strconv.FormatInt(code.ID, 10),
		Details:    map[string]any{"timetable_id": timetableID, "ttl_minutes": ttlMinutes},
		IPAddress:  clientIP,
	})
	return code, nil
}

// Current returns the most-recently-created unexpired code for the session.
func (s *Service) Current(ctx context.Context, actor auth.Identity, timetableID int64, kind Kind) (Code, error) {
	if !kind.Valid() {
		return Code{}, apperr.Validation("kind must be 'qr' or 'otp'")
	}
	if err := s.authorize(ctx, actor, timetableID); err != nil {
		return Code{}, err
	}
	code, err := s.codes.Current(ctx, timetableID, kind, s.now())
	if err != nil {
		return Code{}, fmt.Errorf("current %s code: %w", kind, err)
	}
	if code == nil {
		return Code{}, apperr.NotFound("no active %s code found for this timetable", kind)
	}
	return *code, nil
}

// authorize loads the session and checks that the actor may manage its
// codes: the assigned teacher or an admin.
func (s *Service) authorize(ctx context.Context, actor auth.Identity, timetableID int64) error {
	if !actor.Allowed(auth.RoleTeacher, auth.RoleAdmin) {
		return apperr.Forbidden("access denied for role %q", actor.Role)
	}
	session, err := s.sessions.Session(ctx, timetableID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return apperr.NotFound("timetable not found")
	}
	if actor.Role == auth.RoleTeacher && session.TeacherID != actor.UserID {
		return apperr.Forbidden("you can only manage codes for your own timetables")
	}
	return nil
}

// PNGBase64 renders the code value as a QR image and returns it as a
// base64-encoded PNG.
func PNGBase64(value string) (string, error) {
	png, err := qrcode.Encode(value, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
