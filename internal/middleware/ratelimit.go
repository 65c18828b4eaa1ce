package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type windowCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimiter counts requests per client IP in fixed windows stored in
// Redis, so every replica shares the same budget.
type RateLimiter struct {
	rdb    windowCounter
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewRateLimiter allows limit requests per window for each client of scope.
func NewRateLimiter(rdb windowCounter, scope string, limit int, window time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		now:    time.Now,
		log:    log.With().Str("component", "ratelimit").Str("scope", scope).Logger(),
	}
}

// Middleware rejects requests over the budget with 429 and Retry-After.
// Redis failures let the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, resetIn, err := rl.hit(c.Request.Context(), c.ClientIP())
		if err != nil {
			rl.log.Warn().Err(err).Msg("Rate limit check failed, allowing request")
			c.Next()
			return
		}

		remaining := rl.limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > rl.limit {
			c.Header("Retry-After", strconv.Itoa(int(resetIn.Seconds())+1))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) hit(ctx context.Context, client string) (int64, time.Duration, error) {
	now := rl.now()
	slot := now.UnixNano() / int64(rl.window)
	key := config.CacheKey.RateLimitKey(rl.scope, client, slot)

	count, err := rl.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := rl.rdb.Expire(ctx, key, rl.window).Err(); err != nil {
			return 0, 0, err
		}
	}
	resetAt := time.Unix(0, (slot+1)*int64(rl.window))
	return count, resetAt.Sub(now), nil
}
