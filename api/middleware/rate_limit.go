package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter counts requests per client key in fixed windows.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*windowCount
}

type windowCount struct {
	count int
	start time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*windowCount),
	}
}

// Allow reports whether the key has budget left in its current window and
// consumes one unit if so.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.start) >= rl.window {
		rl.prune(now)
		rl.buckets[key] = &windowCount{count: 1, start: now}
		return true
	}
	if b.count >= rl.limit {
		return false
	}
	b.count++
	return true
}

// prune drops expired buckets. Called on window rollover while the lock is
// held, so the map stays bounded by the active client set.
func (rl *RateLimiter) prune(now time.Time) {
	for key, b := range rl.buckets {
		if now.Sub(b.start) >= rl.window {
			delete(rl.buckets, key)
		}
	}
}

// RateLimit enforces a per-client-IP request budget across the whole API.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(limit, window)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			return
		}
		c.Next()
	}
}

// EndpointRateLimiter applies tighter budgets to individual routes, keyed
// by the route pattern gin matched.
type EndpointRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*RateLimiter
}

func NewEndpointRateLimiter() *EndpointRateLimiter {
	return &EndpointRateLimiter{
		limiters: make(map[string]*RateLimiter),
	}
}

// AddEndpoint registers a rate limit for a route pattern.
func (erl *EndpointRateLimiter) AddEndpoint(path string, limit int, window time.Duration) {
	erl.mu.Lock()
	defer erl.mu.Unlock()
	erl.limiters[path] = NewRateLimiter(limit, window)
}

// Middleware enforces the registered per-endpoint limits. Routes without a
// registered limit pass through untouched.
func (erl *EndpointRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		erl.mu.RLock()
		limiter, exists := erl.limiters[c.FullPath()]
		erl.mu.RUnlock()

		if exists && !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded for this endpoint",
				"retry_after": limiter.window.Seconds(),
			})
			return
		}

		c.Next()
	}
}
