package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipRateLimiter stores a token-bucket limiter per client IP.
type ipRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.RWMutex
	r   rate.Limit
	b   int
}

func (i *ipRateLimiter) limiter(ip string) *rate.Limiter {
	i.mu.RLock()
	lim, exists := i.ips[ip]
	i.mu.RUnlock()
	if exists {
		return lim
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if lim, exists = i.ips[ip]; exists {
		return lim
	}
	lim = rate.NewLimiter(i.r, i.b)
	i.ips[ip] = lim
	return lim
}

// RateLimiter rejects clients exceeding r requests/second with burst b.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := &ipRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
	return func(c *gin.Context) {
		if !limiter.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
