package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL is how long an unused client bucket is kept.
	IdleTTL time.Duration
	Skipper middleware.Skipper
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		IdleTTL:           10 * time.Minute,
	}
}

type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastSeen   time.Time
}

func (b *tokenBucket) take(now time.Time) (ok bool, retryAfter int) {
	b.tokens += now.Sub(b.lastSeen).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.refillRate <= 0 {
		return false, 1
	}
	return false, int((1-b.tokens)/b.refillRate) + 1
}

// limiter holds one bucket per client key.
type limiter struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	cfg       RateLimitConfig
	lastSweep time.Time
	now       func() time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &limiter{buckets: make(map[string]*tokenBucket), cfg: cfg, now: time.Now}
}

func (l *limiter) allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.cfg.IdleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.cfg.IdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{
			tokens:     float64(l.cfg.BurstSize),
			maxTokens:  float64(l.cfg.BurstSize),
			refillRate: l.cfg.RequestsPerSecond,
			lastSeen:   now,
		}
		l.buckets[key] = b
	}
	return b.take(now)
}

// RateLimit returns a per-client-IP token bucket rate limiter.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	l := newLimiter(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			if ok, retryAfter := l.allow(c.RealIP()); !ok {
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
