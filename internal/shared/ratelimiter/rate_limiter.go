// Package ratelimiter limits how often a client may call credential endpoints.
package ratelimiter

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// window is the fixed counting window of one key.
type window struct {
	count int
	start time.Time
}

// RateLimiter allows at most limit calls per interval for each key.
// Keys are independent; a window starts with the first call of a key.
type RateLimiter struct {
	limit    int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*window
	// lastSweep is when expired windows were last dropped.
	lastSweep time.Time
}

// NewRateLimiter creates a new RateLimiter. A limit of 0 or less disables limiting.
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		now:       time.Now,
		windows:   make(map[string]*window),
		lastSweep: time.Now(),
	}
}

// Allow records a call for key and reports whether it is within the limit.
// When it is not, the second return value is how long until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	if rl.limit <= 0 {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.interval {
		w = &window{start: now}
		rl.windows[key] = w
	}

	w.count++
	if w.count > rl.limit {
		return false, rl.interval - now.Sub(w.start)
	}
	return true, 0
}

// sweep drops expired windows at most once per interval so the map does not grow without bound.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.interval {
		return
	}
	for k, w := range rl.windows {
		if now.Sub(w.start) >= rl.interval {
			delete(rl.windows, k)
		}
	}
	rl.lastSweep = now
}

// Middleware rejects requests over the limit with 429, keyed by client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := rl.Allow(c.ClientIP() + " " + c.FullPath())
		if !ok {
			secs := int(math.Ceil(retryAfter.Seconds()))
			slog.Warn("rate limit exceeded", "remote_addr", c.ClientIP(), "path", c.FullPath(), "retry_after_s", secs)
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again shortly."})
			return
		}
		c.Next()
	}
}
