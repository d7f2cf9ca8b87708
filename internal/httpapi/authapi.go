package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vishal-43/smart-attendece-system/internal/apperr"
	"github.com/Vishal-43/smart-attendece-system/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login and returns an access/refresh token pair.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failStatus(c, http.StatusUnprocessableEntity, "email and password are required")
		return
	}

	u, err := h.users.ByEmail(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	if u == nil || !u.CheckPassword(req.Password) {
		fail(c, apperr.Unauthorized("invalid email or password"))
		return
	}
	if !u.IsActive {
		fail(c, apperr.Forbidden("account is disabled"))
		return
	}

	tokens, err := auth.Issue(u.ID, u.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, "login successful", gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
		"user": gin.H{
			"id":        u.ID,
			"full_name": u.FullName,
			"email":     u.Email,
			"role":      u.Role,
		},
	})
}
