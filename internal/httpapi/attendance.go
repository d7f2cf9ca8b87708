package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Vishal-43/smart-attendece-system/internal/apperr"
	"github.com/Vishal-43/smart-attendece-system/internal/attendance"
	"github.com/Vishal-43/smart-attendece-system/internal/metrics"
)

type markRequest struct {
	TimetableID int64    `json:"timetable_id"`
	Method      string   `json:"method"`
	Code        string   `json:"code"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	DeviceInfo  *string  `json:"device_info"`
}

// MarkAttendance handles POST /attendance/mark.
func (h *Handler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failStatus(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	rec, err := h.att.Mark(c.Request.Context(), identity(c), attendance.MarkRequest{
		TimetableID: req.TimetableID,
		Method:      req.Method,
		Code:        req.Code,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		DeviceInfo:  req.DeviceInfo,
	}, c.ClientIP())
	if err != nil {
		metrics.MarkFailures.WithLabelValues(failureReason(err)).Inc()
		fail(c, err)
		return
	}

	metrics.AttendanceMarked.WithLabelValues(req.Method).Inc()
	respond(c, http.StatusOK, "attendance marked successfully", rec)
}

// AttendanceHistory handles GET /attendance/history/:user_id.
func (h *Handler) AttendanceHistory(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	target, err := h.users.ByID(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	if target == nil {
		fail(c, apperr.NotFound("user not found"))
		return
	}

	q := attendance.HistoryQuery{
		Page:  queryInt(c, "page", 1),
		Limit: queryInt(c, "limit", 20),
	}
	if v := c.Query("timetable_id"); v != "" {
		id, ok := parseInt64(v)
		if !ok {
			failStatus(c, http.StatusUnprocessableEntity, "timetable_id must be an integer")
			return
		}
		q.TimetableID = &id
	}
	if t, ok := queryDate(c, "start_date"); ok {
		q.StartDate = t
	} else {
		return
	}
	if t, ok := queryDate(c, "end_date"); ok {
		q.EndDate = t
	} else {
		return
	}

	page, err := h.att.History(c.Request.Context(), identity(c), userID, q)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "success", page)
}

// SessionAttendance handles GET /attendance/session/:timetable_id.
func (h *Handler) SessionAttendance(c *gin.Context) {
	timetableID, ok := pathID(c, "timetable_id")
	if !ok {
		return
	}
	var day *time.Time
	if t, ok := queryDate(c, "session_date"); ok {
		day = t
	} else {
		return
	}

	summary, err := h.att.SessionAttendance(c.Request.Context(), identity(c), timetableID, day)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "success", summary)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateAttendance handles PUT /attendance/:attendance_id.
func (h *Handler) UpdateAttendance(c *gin.Context) {
	recordID, ok := pathID(c, "attendance_id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failStatus(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	rec, err := h.att.UpdateStatus(c.Request.Context(), identity(c), recordID, attendance.Status(req.Status), c.ClientIP())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "attendance record updated", rec)
}

// ListAttendance handles GET /attendance (admin only).
func (h *Handler) ListAttendance(c *gin.Context) {
	page, err := h.att.List(c.Request.Context(), identity(c), queryInt(c, "page", 1), queryInt(c, "limit", 50))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "success", page)
}

// failureReason buckets a mark error for metrics.
func failureReason(err error) string {
	e, ok := apperr.As(err)
	if !ok {
		return "internal"
	}
	switch e.Kind {
	case apperr.KindValidation:
		return "validation"
	case apperr.KindForbidden:
		return "forbidden"
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindConflict:
		return "duplicate"
	default:
		return "other"
	}
}
