package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prajwallshetty/ClientX/backend/pkg/logger"
)

// RateLimiter is a fixed-window limiter keyed by client. Each client's window
// starts with its first request.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientWindow
	lastSweep time.Time
	rate      int           // requests per window
	window    time.Duration // time window
	now       func() time.Time
}

type clientWindow struct {
	start time.Time
	count int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientWindow),
		lastSweep: time.Now(),
		rate:      rate,
		window:    window,
		now:       time.Now,
	}
}

// Allow records a request from key and reports whether it is within the
// limit. When it is not, the time until the window resets is returned.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.window {
		for k, w := range l.clients {
			if now.Sub(w.start) >= l.window {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &clientWindow{start: now}
		l.clients[key] = w
	}
	if w.count >= l.rate {
		return false, w.start.Add(l.window).Sub(now)
	}
	w.count++
	return true, 0
}

// RateLimit middleware limits requests per IP
func RateLimit(rate int, window time.Duration) gin.HandlerFunc {
	return RateLimitWith(NewRateLimiter(rate, window))
}

// RateLimitWith applies an existing limiter.
func RateLimitWith(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		ok, retryAfter := limiter.Allow(clientIP)
		if !ok {
			logger.Warn(c.Request.Context(), "rate limit exceeded", "client_ip", clientIP)

			seconds := int(retryAfter.Seconds())
			if retryAfter%time.Second != 0 {
				seconds++
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			abortWithError(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		c.Next()
	}
}
