package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/redis/go-redis/v9"
)

// Outbox queues messages in Redis for the mail worker. Send returns once
// the message is durably queued, so request handlers never wait on the
// mail provider.
type Outbox struct {
	rdb   *redis.Client
	queue string
}

var _ Notifier = (*Outbox)(nil)

// NewOutbox creates an Outbox pushing to the mail outbox queue.
func NewOutbox(rdb *redis.Client) *Outbox {
	return &Outbox{rdb: rdb, queue: config.WorkerKey.MailOutboxQueue}
}

func (o *Outbox) Send(ctx context.Context, msg Message) error {
	msg, err := Prepare(msg)
	if err != nil {
		return err
	}
	return o.Enqueue(ctx, msg)
}

// Enqueue pushes an already prepared message.
func (o *Outbox) Enqueue(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := o.rdb.RPush(ctx, o.queue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue message: %w", err)
	}
	return nil
}
