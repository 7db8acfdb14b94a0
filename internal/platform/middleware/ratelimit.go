package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig configures a per-client token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// LoginRateLimitConfig bounds password guessing on the login endpoint.
func LoginRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 1,
		BurstSize:         10,
	}
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastRefill: time.Now(),
	}
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (b *tokenBucket) retryAfter() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refillRate <= 0 {
		return 1
	}
	return int((1-b.tokens)/b.refillRate) + 1
}

const bucketSweepInterval = time.Minute

type bucketStore struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	config    RateLimitConfig
	lastSweep time.Time
}

func newBucketStore(cfg RateLimitConfig) *bucketStore {
	return &bucketStore{buckets: make(map[string]*tokenBucket), config: cfg, lastSweep: time.Now()}
}

// idleAfter is how long a bucket must sit unused before it is back at full
// burst, at which point dropping it is indistinguishable from keeping it.
func (s *bucketStore) idleAfter() time.Duration {
	idle := bucketSweepInterval
	if s.config.RequestsPerSecond > 0 {
		full := time.Duration(float64(s.config.BurstSize) / s.config.RequestsPerSecond * float64(time.Second))
		if full > idle {
			idle = full
		}
	}
	return idle
}

func (s *bucketStore) get(key string) *tokenBucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if now.Sub(s.lastSweep) >= bucketSweepInterval {
		s.sweep(now)
	}
	b, ok := s.buckets[key]
	if !ok {
		b = newTokenBucket(s.config.RequestsPerSecond, s.config.BurstSize)
		s.buckets[key] = b
	}
	return b
}

// sweep drops idle buckets. Callers hold s.mu.
func (s *bucketStore) sweep(now time.Time) {
	idle := s.idleAfter()
	for key, b := range s.buckets {
		b.mu.Lock()
		last := b.lastRefill
		b.mu.Unlock()
		if now.Sub(last) >= idle {
			delete(s.buckets, key)
		}
	}
	s.lastSweep = now
}

// RateLimit limits requests per client IP.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newBucketStore(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bucket := store.get(c.RealIP())
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			if !bucket.allow() {
				h.Set("Retry-After", strconv.Itoa(bucket.retryAfter()))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
			}
			return next(c)
		}
	}
}
