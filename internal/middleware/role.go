package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deptrooms/internal/domain"
	"deptrooms/internal/pkg/response"
)

// Require lets the request through only when allowed(session) is true.
func Require(allowed func(domain.Session) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			c.Abort()
			return
		}

		if !allowed(sess) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole ensures that the authenticated user has one of roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return Require(func(s domain.Session) bool {
		for _, r := range roles {
			if s.Role == r {
				return true
			}
		}
		return false
	})
}

// AdminOnly middleware requires admin role
func AdminOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}
