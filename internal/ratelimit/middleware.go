package ratelimit

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"plana-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Fixed-window counter: first INCR in a window arms the expiry, later ones
// ride the existing key.
var fixedWindowScript = redis.NewScript(`
-- KEYS[1] = counter key
-- ARGV[1] = window_ms (int)
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
else
  if redis.call('PTTL', KEYS[1]) < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
  end
end
return current
`)

// Limiter applies a fixed-window request cap per client IP. Intended for the
// public login endpoints, which face the open internet unauthenticated.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) (*Limiter, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	if prefix == "" {
		return nil, errors.New("key prefix is required")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	if window <= 0 {
		return nil, errors.New("window must be > 0")
	}
	return &Limiter{rdb: rdb, limit: limit, window: window, prefix: prefix}, nil
}

// Middleware rejects callers over the limit with 429. Redis failures fail
// open: keeping the login page reachable matters more than strict limiting.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", l.prefix, c.ClientIP())

		count, err := fixedWindowScript.Run(
			c.Request.Context(), l.rdb, []string{key}, l.window.Milliseconds(),
		).Int()
		if err != nil {
			logger.FromGin(c).Warn("rate limit check failed, allowing", "err", err)
			c.Next()
			return
		}

		if count > l.limit {
			logger.FromGin(c).Warn("rate limit exceeded",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
