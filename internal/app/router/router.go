// Package router assembles the gin engine: middleware, CORS and routes.
package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	authhandler "wandertrails_backend/internal/feature/auth/transport/handler"
	platformhandler "wandertrails_backend/internal/platform/http/handler"
	jwtmw "wandertrails_backend/internal/platform/jwt"
	"wandertrails_backend/internal/shared/ratelimiter"
)

var localhostOrigin = regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1)(:\d+)?$`)

// Config holds the router options.
type Config struct {
	// AllowedOrigins are browser origins allowed to call the API with credentials.
	AllowedOrigins []string
	// AllowLocalhost additionally allows any localhost port. Never set in production.
	AllowLocalhost bool
	// CookieName is the session cookie read by protected routes.
	CookieName string
	// TrustedProxies may set the client IP through X-Forwarded-For. Nil trusts no proxy,
	// so rate limiting and logs use the socket address.
	TrustedProxies []string
}

// NewRouter creates the engine. limiter may be nil to disable rate limiting.
func NewRouter(cfg Config, auth *authhandler.AuthHandler, limiter *ratelimiter.RateLimiter) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  OriginAllowed(cfg.AllowedOrigins, cfg.AllowLocalhost),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	limit := func(c *gin.Context) { c.Next() }
	if limiter != nil {
		limit = limiter.Middleware()
	}

	r.GET("/health", platformhandler.Health)
	r.HEAD("/health", platformhandler.Health)
	r.OPTIONS("/health", platformhandler.Health)

	g := r.Group("/auth")
	{
		g.POST("/signup", limit, auth.Signup)
		g.POST("/login", limit, auth.Login)
		g.POST("/logout", auth.Logout)
		g.POST("/forgot-password", limit, auth.ForgotPassword)
		g.POST("/reset-password", limit, auth.ResetPassword)
		g.GET("/me", jwtmw.TokenRequired(cfg.CookieName), auth.Me)
	}

	return r, nil
}

// OriginAllowed returns the CORS origin predicate. Origins are compared without a trailing slash.
func OriginAllowed(allowed []string, allowLocalhost bool) func(origin string) bool {
	normalized := make([]string, 0, len(allowed))
	for _, o := range allowed {
		normalized = append(normalized, strings.TrimRight(o, "/"))
	}

	return func(origin string) bool {
		o := strings.TrimRight(origin, "/")
		if slices.Contains(normalized, o) {
			return true
		}
		if allowLocalhost && localhostOrigin.MatchString(o) {
			return true
		}
		slog.Warn("CORS rejection", "origin", origin, "allowed", normalized)
		return false
	}
}
