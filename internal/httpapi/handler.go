// Package httpapi wires the attendance and code services to gin routes.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Vishal-43/smart-attendece-system/internal/attendance"
	"github.com/Vishal-43/smart-attendece-system/internal/auth"
	"github.com/Vishal-43/smart-attendece-system/internal/config"
	"github.com/Vishal-43/smart-attendece-system/internal/user"
	"github.com/Vishal-43/smart-attendece-system/internal/verification"
)

// UserDirectory resolves accounts for login and history checks.
type UserDirectory interface {
	ByID(ctx context.Context, id int64) (*user.User, error)
	ByEmail(ctx context.Context, email string) (*user.User, error)
}

// Handler holds the services the routes delegate to.
type Handler struct {
	cfg   config.App
	att   *attendance.Service
	codes *verification.Service
	users UserDirectory
	now   func() time.Time
}

// New creates a handler.
func New(cfg config.App, att *attendance.Service, codes *verification.Service, users UserDirectory) *Handler {
	return &Handler{
		cfg:   cfg,
		att:   att,
		codes: codes,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Register mounts all routes under /api/v1.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.POST("/auth/login", h.Login)

	authed := api.Group("", auth.RequireAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))

	att := authed.Group("/attendance")
	att.POST("/mark", auth.RequireRole(auth.RoleStudent), h.MarkAttendance)
	att.GET("/history/:user_id", h.AttendanceHistory)
	att.GET("/session/:timetable_id", auth.RequireRole(auth.RoleTeacher, auth.RoleAdmin), h.SessionAttendance)
	att.PUT("/:attendance_id", auth.RequireRole(auth.RoleTeacher, auth.RoleAdmin), h.UpdateAttendance)
	att.GET("", auth.RequireRole(auth.RoleAdmin), h.ListAttendance)

	codeRoles := auth.RequireRole(auth.RoleTeacher, auth.RoleAdmin)

	qr := authed.Group("/qr", codeRoles)
	qr.POST("/generate/:timetable_id", h.issueCode(verification.KindQR, "QR code generated"))
	qr.GET("/current/:timetable_id", h.currentCode(verification.KindQR))
	qr.POST("/refresh/:timetable_id", h.issueCode(verification.KindQR, "QR code refreshed"))

	otp := authed.Group("/otp", codeRoles)
	otp.POST("/generate/:timetable_id", h.issueCode(verification.KindOTP, "OTP generated successfully"))
	otp.GET("/current/:timetable_id", h.currentCode(verification.KindOTP))
	otp.POST("/refresh/:timetable_id", h.issueCode(verification.KindOTP, "OTP refreshed successfully"))
}

// identity pulls the authenticated caller; routes behind RequireAuth always
// have one.
func identity(c *gin.Context) auth.Identity {
	ident, _ := auth.FromContext(c)
	return ident
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		failStatus(c, http.StatusUnprocessableEntity, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if v := c.Query(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseInt64(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}

// queryDate parses an optional YYYY-MM-DD query param. A false return means
// the failure response has already been written.
func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		failStatus(c, http.StatusUnprocessableEntity, name+" must be formatted YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}
