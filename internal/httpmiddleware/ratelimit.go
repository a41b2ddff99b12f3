package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is an in-memory per-IP token bucket. The marking UI fires
// bursts of requests when a class is submitted, so the bucket capacity
// absorbs a burst while the per-minute rate caps sustained traffic.
// For multi-instance deployments swap the state to Redis.
type RateLimiter struct {
	capacity int
	rate     int

	mu      sync.Mutex
	buckets map[string]*tokenBucket
	exempt  map[string]bool
}

type tokenBucket struct {
	tokens int
	last   time.Time
}

// NewRateLimiter creates a limiter allowing perMinute requests with bursts
// up to capacity. Probe paths in exemptPaths bypass the limiter entirely.
func NewRateLimiter(capacity, perMinute int, exemptPaths ...string) *RateLimiter {
	if capacity <= 0 {
		capacity = perMinute
	}
	exempt := make(map[string]bool, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = true
	}
	return &RateLimiter{
		capacity: capacity,
		rate:     perMinute,
		buckets:  make(map[string]*tokenBucket),
		exempt:   exempt,
	}
}

// GinMiddleware enforces the per-IP limit.
func (l *RateLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.exempt[c.FullPath()] || l.exempt[c.Request.URL.Path] {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	now := time.Now()
	if !ok {
		l.buckets[key] = &tokenBucket{tokens: l.capacity - 1, last: now}
		return true
	}
	refill := int(now.Sub(b.last).Minutes() * float64(l.rate))
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}
