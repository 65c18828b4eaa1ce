package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const healthTimeout = 2 * time.Second

type sqlPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Checker probes the backing stores for the health endpoint.
type Checker struct {
	db    sqlPinger
	cache redisPinger
}

// NewChecker accepts a *pgxpool.Pool and a *redis.Client.
func NewChecker(db sqlPinger, cache redisPinger) *Checker {
	return &Checker{db: db, cache: cache}
}

// Check returns "ok" or the error text per store, and whether all are up.
func (c *Checker) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	status := map[string]string{"postgres": "ok", "redis": "ok"}
	healthy := true
	if err := c.db.Ping(ctx); err != nil {
		status["postgres"] = err.Error()
		healthy = false
	}
	if err := c.cache.Ping(ctx).Err(); err != nil {
		status["redis"] = err.Error()
		healthy = false
	}
	return status, healthy
}
