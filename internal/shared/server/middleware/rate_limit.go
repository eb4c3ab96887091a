package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"recruitment-backend/internal/shared/metrics"
	"recruitment-backend/internal/shared/server/respond"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	// GenerateGroup is the rule group applied to generation endpoints.
	GenerateGroup = "GENERATE"

	defaultIdleWindow = 10 * time.Minute
)

// RateLimitRule is a token bucket refilled at Rate per second up to Burst.
// A zero Rate or Burst disables limiting for the group.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// RateLimitConfig limits one route group per client IP. Routes sharing a
// Limiter under different groups draw from separate buckets.
type RateLimitConfig struct {
	Rules   map[string]RateLimitRule
	Group   string
	Limiter *RateLimiter
}

// RateLimiter keeps one token bucket per caller and group.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	idle    time.Duration
}

type bucket struct {
	lim  *rate.Limiter
	rule RateLimitRule
	seen time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		now:     now,
		idle:    defaultIdleWindow,
	}
}

// GenerateRateLimit limits generation requests per client IP.
func GenerateRateLimit(rps float64, burst int, limiter *RateLimiter) gin.HandlerFunc {
	return RateLimit(RateLimitConfig{
		Group:   GenerateGroup,
		Limiter: limiter,
		Rules: map[string]RateLimitRule{
			GenerateGroup: {Rate: rps, Burst: burst},
		},
	})
}

func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = defaultRateLimitGroup
	}
	rule, ok := cfg.Rules[group]
	return func(c *gin.Context) {
		if !ok {
			c.Next()
			return
		}
		allowed, retryAfter := cfg.Limiter.Allow(c.ClientIP()+"|"+group, rule)
		if allowed {
			c.Next()
			return
		}

		metrics.IncRateLimited(group)
		retryAfterMs := retryAfter.Milliseconds()
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		c.Header("Retry-After", strconv.FormatInt(int64(math.Ceil(float64(retryAfterMs)/1000)), 10))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", gin.H{
			"group":        group,
			"retryAfterMs": retryAfterMs,
		})
	}
}

// Allow takes one token from key's bucket. When the bucket is empty it
// reports how long until a token is available and leaves the bucket as it was.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || b.rule != rule {
		if !ok {
			l.evictLocked(now)
		}
		b = &bucket{lim: rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst), rule: rule}
		l.buckets[key] = b
	}
	b.seen = now

	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len reports the number of tracked buckets.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// evictLocked drops buckets untouched for the idle window.
func (l *RateLimiter) evictLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= l.idle {
			delete(l.buckets, k)
		}
	}
}
