// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the request identity. The service runs behind an API
// gateway that authenticates clients and forwards the verified subject in the
// X-User-ID header, so identity handling here is validation and context
// stashing, not authentication.
package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderUserID carries the gateway-verified user identity.
const HeaderUserID = "X-User-ID"

// userIDKey is the Gin context key under which the user ID is stored.
const userIDKey = "userID"

// maxUserIDLen caps accepted identity length.
const maxUserIDLen = 64

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:@]+$`)

// RequireUser validates the X-User-ID header and stores it in the Gin
// context. Requests without a usable identity are rejected with 401; every
// route in the API is user-scoped, so there is nothing to serve anonymously.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing " + HeaderUserID + " header",
			})
			return
		}
		if len(uid) > maxUserIDLen || !userIDPattern.MatchString(uid) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_request",
				"message":    "invalid " + HeaderUserID + " header",
			})
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// UserIDFrom returns the validated user ID stored by RequireUser, or "".
func UserIDFrom(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
