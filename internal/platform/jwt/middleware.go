package jwtmw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextToken is the gin context key holding the raw session token.
const ContextToken = "sessionToken"

// ExtractToken returns the session token from the named cookie, falling back to
// an "Authorization: Bearer <token>" header for non-browser clients.
func ExtractToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}

	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// TokenRequired returns a Gin middleware that rejects requests carrying no session token.
// Verification is left to the session lookup so that every identity backend shares this middleware.
func TokenRequired(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(ContextToken, token)
		c.Next()
	}
}

// TokenFrom returns the token stored by TokenRequired, or "".
func TokenFrom(c *gin.Context) string {
	return c.GetString(ContextToken)
}
