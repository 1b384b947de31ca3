package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter enforces a minimum interval between requests per trader.
// The trader id doubles as the rate-limit key so committing and revealing
// from the same account share one budget.
type RateLimiter struct {
	traders map[string]time.Time
	mu      sync.Mutex
	limit   time.Duration
}

func NewRateLimiter(limit time.Duration) *RateLimiter {
	return &RateLimiter{
		traders: make(map[string]time.Time),
		limit:   limit,
	}
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traderID := c.GetHeader("X-Trader-ID")
		if traderID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Trader-ID header required"})
			c.Abort()
			return
		}
		r.mu.Lock()
		last, exists := r.traders[traderID]
		if exists && time.Since(last) < r.limit {
			r.mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		r.traders[traderID] = time.Now()
		r.mu.Unlock()
		c.Next()
	}
}
