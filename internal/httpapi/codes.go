package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Vishal-43/smart-attendece-system/internal/metrics"
	"github.com/Vishal-43/smart-attendece-system/internal/verification"
)

// codePayload is a verification code as serialized in responses.
type codePayload struct {
	ID            int64     `json:"id"`
	TimetableID   int64     `json:"timetable_id"`
	Code          string    `json:"code"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	UsedCount     int       `json:"used_count"`
	IsExpired     bool      `json:"is_expired"`
	QRImageBase64 string    `json:"qr_image_base64,omitempty"`
}

func (h *Handler) codeJSON(code verification.Code, withImage bool) codePayload {
	p := codePayload{
		ID:          code.ID,
		TimetableID: code.TimetableID,
		Code:        code.Value,
		CreatedAt:   code.CreatedAt,
		ExpiresAt:   code.ExpiresAt,
		UsedCount:   code.UsedCount,
		IsExpired:   code.Expired(h.now()),
	}
	if withImage && code.Kind == verification.KindQR {
		img, err := verification.PNGBase64(code.Value)
		if err != nil {
			log.Printf("qr image render failed: %v", err)
		} else {
			p.QRImageBase64 = img
		}
	}
	return p
}

// issueCode builds the handler shared by generate and refresh for a kind:
// both always rotate; only the response message differs.
func (h *Handler) issueCode(kind verification.Kind, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		timetableID, ok := pathID(c, "timetable_id")
		if !ok {
			return
		}
		ttl := queryInt(c, "ttl_minutes", h.defaultTTL(kind))

		code, err := h.codes.Issue(c.Request.Context(), identity(c), timetableID, kind, ttl, c.ClientIP())
		if err != nil {
			fail(c, err)
			return
		}

		metrics.CodesIssued.WithLabelValues(string(kind)).Inc()
		respond(c, http.StatusOK, message, h.codeJSON(code, kind == verification.KindQR))
	}
}

// currentCode builds the handler for GET current for a kind. The QR variant
// renders the image only when with_image=true.
func (h *Handler) currentCode(kind verification.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		timetableID, ok := pathID(c, "timetable_id")
		if !ok {
			return
		}

		code, err := h.codes.Current(c.Request.Context(), identity(c), timetableID, kind)
		if err != nil {
			fail(c, err)
			return
		}

		withImage := kind == verification.KindQR && c.Query("with_image") == "true"
		respond(c, http.StatusOK, "success", h.codeJSON(code, withImage))
	}
}

func (h *Handler) defaultTTL(kind verification.Kind) int {
	if kind == verification.KindOTP {
		return h.cfg.OTPDefaultTTLMin
	}
	return h.cfg.QRDefaultTTLMin
}
