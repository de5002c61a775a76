package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	limiterCacheSize = 10000
	limiterIdleTTL   = 10 * time.Minute
)

// limiterStore holds one token bucket per key for a single middleware
// instance. Keys idle for longer than the TTL, or pushed out once the store
// is full, start again with a full bucket.
type limiterStore struct {
	mu      sync.Mutex
	rps     float64
	burst   int
	buckets *expirable.LRU[string, *rate.Limiter]
}

func newLimiterStore(rps float64, burst, size int, idle time.Duration) *limiterStore {
	return &limiterStore{
		rps:     rps,
		burst:   burst,
		buckets: expirable.NewLRU[string, *rate.Limiter](size, nil, idle),
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.buckets.Get(key)
	if !ok {
		lim = rate.NewLimiter(rate.Limit(s.rps), s.burst)
	}
	// re-adding pushes the idle deadline forward
	s.buckets.Add(key, lim)
	return lim
}

// rateKey prefers the authenticated principal, then a raw `claims.sub`, and
// falls back to the client IP.
func rateKey(c *gin.Context) string {
	if v, ok := c.Get(identity.ContextKey); ok {
		if p, ok := v.(*identity.Principal); ok && p != nil && p.ID != "" {
			return "sub:" + p.ID
		}
	}
	if v, ok := c.Get(ClaimsKey); ok {
		if cm, ok := v.(map[string]interface{}); ok {
			if sub, ok := cm["sub"].(string); ok && sub != "" {
				return "sub:" + sub
			}
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := newLimiterStore(rps, burst, limiterCacheSize, limiterIdleTTL)
	return func(c *gin.Context) {
		if !store.get(rateKey(c)).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
