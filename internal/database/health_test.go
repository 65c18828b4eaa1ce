package database

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type redisPing struct{ err error }

func (r redisPing) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", r.err)
}

func TestChecker(t *testing.T) {
	up := pingFunc(func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})

	status, ok := NewChecker(up, redisPing{}).Check(context.Background())
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, status)

	status, ok = NewChecker(up, redisPing{err: errors.New("connection refused")}).Check(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "ok", status["postgres"])
	assert.Equal(t, "connection refused", status["redis"])
}
