package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Vishal-43/smart-attendece-system/internal/apperr"
)

const claimsKey = "claims"

// RequireAuth enforces bearer JWT tokens signed with HS256 and stores the
// parsed claims on the request context.
func RequireAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			abort(c, apperr.Unauthorized("missing bearer token"))
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			abort(c, apperr.Unauthorized("invalid token"))
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated caller holds one of
// the given roles. Must run after RequireAuth.
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := FromContext(c)
		if !ok {
			abort(c, apperr.Unauthorized("authentication required"))
			return
		}
		if !ident.Allowed(roles...) {
			abort(c, apperr.Forbidden("access denied for role %q", ident.Role))
			return
		}
		c.Next()
	}
}

// FromContext returns the caller identity stored by RequireAuth.
func FromContext(c *gin.Context) (Identity, bool) {
	claimsAny, ok := c.Get(claimsKey)
	if !ok {
		return Identity{}, false
	}
	claims, ok := claimsAny.(Claims)
	if !ok {
		return Identity{}, false
	}
	return claims.Identity(), true
}

func abort(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{
		"success": false,
		"message": err.Message,
		"data":    err.Data,
	})
}
