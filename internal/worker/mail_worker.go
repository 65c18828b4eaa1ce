package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// mailQueue is the subset of *redis.Client the mail worker uses.
type mailQueue interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LPop(ctx context.Context, key string) *redis.StringCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// MailWorker drains the mail outbox and hands each message to the real
// mailer. Failed messages go back to the queue until they reach the retry
// limit, then to the dead-letter queue.
type MailWorker struct {
	queue      mailQueue
	mailer     notify.Notifier
	maxRetries int
	backoff    time.Duration
	log        zerolog.Logger
}

// NewMailWorker creates a new MailWorker.
func NewMailWorker(queue mailQueue, mailer notify.Notifier, maxRetries int, log zerolog.Logger) *MailWorker {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &MailWorker{
		queue:      queue,
		mailer:     mailer,
		maxRetries: maxRetries,
		backoff:    5 * time.Second,
		log:        log.With().Str("component", "mail_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *MailWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *MailWorker) processNext(ctx context.Context) {
	result, err := w.queue.BLPop(ctx, time.Second, config.WorkerKey.MailOutboxQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	if retried := w.handle(ctx, result[1]); retried {
		select {
		case <-ctx.Done():
		case <-time.After(w.backoff):
		}
	}
}

// handle delivers one queued payload. It reports whether the message was
// put back for another attempt.
func (w *MailWorker) handle(ctx context.Context, raw string) bool {
	var msg notify.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error, moving to dead letter")
		w.deadLetter(ctx, raw)
		return false
	}

	err := w.mailer.Send(ctx, msg)
	if err == nil {
		return false
	}
	if errors.Is(err, notify.ErrNoRecipients) {
		w.log.Warn().Str("message_id", msg.ID).Msg("Message without recipients dropped")
		return false
	}

	msg.Attempts++
	logger := w.log.With().Err(err).Str("message_id", msg.ID).Int("attempts", msg.Attempts).Logger()
	payload, _ := json.Marshal(msg)
	if msg.Attempts >= w.maxRetries {
		logger.Error().Msg("Delivery failed, moving to dead letter")
		w.deadLetter(ctx, string(payload))
		return false
	}
	logger.Warn().Dur("retry_in", w.backoff).Msg("Delivery failed, requeued")
	if err := w.queue.RPush(ctx, config.WorkerKey.MailOutboxQueue, payload).Err(); err != nil {
		logger.Error().Err(err).Msg("Requeue failed, message lost")
	}
	return true
}

func (w *MailWorker) deadLetter(ctx context.Context, raw string) {
	if err := w.queue.RPush(ctx, config.WorkerKey.MailDeadLetterQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Msg("Dead letter push failed")
	}
}

// drain delivers what is left in the outbox before shutdown. Each message
// gets a single attempt; failures stay queued for the next start.
func (w *MailWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.queue.LPop(ctx, config.WorkerKey.MailOutboxQueue).Result()
		if err != nil {
			break
		}
		var msg notify.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			w.deadLetter(ctx, raw)
			continue
		}
		if err := w.mailer.Send(ctx, msg); err != nil {
			w.log.Error().Err(err).Str("message_id", msg.ID).Msg("Drain delivery error")
			w.queue.RPush(ctx, config.WorkerKey.MailOutboxQueue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining messages")
	}
}
