package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"deptrooms/internal/domain"
	"deptrooms/internal/pkg/jwt"
	"deptrooms/internal/pkg/response"
)

const sessionKey = "session"

// JWTAuth authenticates the bearer token and stores the request session.
// user_id and role are also set for log lines.
func JWTAuth(svc *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			abortUnauthorized(c, "AUTH_HEADER_MISSING", "Missing Authorization header")
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			return
		}

		authenticate(c, svc, strings.TrimSpace(parts[1]))
	}
}

// QueryTokenAuth reads the token from the "token" query parameter. Browsers
// cannot set headers on websocket upgrades.
func QueryTokenAuth(svc *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			abortUnauthorized(c, "AUTH_TOKEN_MISSING", "Missing token query parameter")
			return
		}
		authenticate(c, svc, token)
	}
}

func authenticate(c *gin.Context, svc *jwt.Service, token string) {
	if token == "" {
		abortUnauthorized(c, "INVALID_AUTH_FORMAT", "Empty token")
		return
	}

	sess, err := svc.Session(token)
	if err != nil {
		log.Printf("auth_failure path=%s client_ip=%s request_id=%s", c.Request.URL.Path, c.ClientIP(), requestID(c))
		abortUnauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	c.Set(sessionKey, sess)
	c.Set("user_id", sess.UserID)
	c.Set("role", string(sess.Role))
	c.Next()
}

// SessionFrom returns the session stored by JWTAuth.
func SessionFrom(c *gin.Context) (domain.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return domain.Session{}, false
	}
	sess, ok := v.(domain.Session)
	return sess, ok
}

// SetSession is used by tests that bypass token parsing.
func SetSession(c *gin.Context, sess domain.Session) {
	c.Set(sessionKey, sess)
	c.Set("user_id", sess.UserID)
	c.Set("role", string(sess.Role))
}

func abortUnauthorized(c *gin.Context, code, message string) {
	response.Error(c, http.StatusUnauthorized, code, message)
	c.Abort()
}
