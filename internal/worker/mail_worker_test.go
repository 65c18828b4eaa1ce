package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryQueue mimics the Redis list commands over in-process slices.
type memoryQueue struct {
	lists map[string][]string
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{lists: map[string][]string{}}
}

func (q *memoryQueue) BLPop(_ context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	for _, k := range keys {
		if len(q.lists[k]) > 0 {
			v := q.lists[k][0]
			q.lists[k] = q.lists[k][1:]
			return redis.NewStringSliceResult([]string{k, v}, nil)
		}
	}
	return redis.NewStringSliceResult(nil, redis.Nil)
}

func (q *memoryQueue) LPop(_ context.Context, key string) *redis.StringCmd {
	if len(q.lists[key]) == 0 {
		return redis.NewStringResult("", redis.Nil)
	}
	v := q.lists[key][0]
	q.lists[key] = q.lists[key][1:]
	return redis.NewStringResult(v, nil)
}

func (q *memoryQueue) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		switch x := v.(type) {
		case string:
			q.lists[key] = append(q.lists[key], x)
		case []byte:
			q.lists[key] = append(q.lists[key], string(x))
		}
	}
	return redis.NewIntResult(int64(len(q.lists[key])), nil)
}

type flakyMailer struct {
	failures int
	sent     []notify.Message
}

func (m *flakyMailer) Send(_ context.Context, msg notify.Message) error {
	if m.failures > 0 {
		m.failures--
		return errors.New("sendgrid status 503")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func enqueue(t *testing.T, q *memoryQueue, msg notify.Message) {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	q.RPush(context.Background(), config.WorkerKey.MailOutboxQueue, raw)
}

func newTestMailWorker(q *memoryQueue, m notify.Notifier, retries int) *MailWorker {
	w := NewMailWorker(q, m, retries, zerolog.Nop())
	w.backoff = 0
	return w
}

func TestMailWorker_Delivers(t *testing.T) {
	q := newMemoryQueue()
	m := &flakyMailer{}
	enqueue(t, q, notify.Message{ID: "m1", To: []string{"parent@example.ma"}, Subject: "Facture", Body: "..."})

	newTestMailWorker(q, m, 3).processNext(context.Background())

	require.Len(t, m.sent, 1)
	assert.Equal(t, "m1", m.sent[0].ID)
	assert.Empty(t, q.lists[config.WorkerKey.MailOutboxQueue])
}

func TestMailWorker_RetriesThenDeadLetters(t *testing.T) {
	q := newMemoryQueue()
	m := &flakyMailer{failures: 10}
	enqueue(t, q, notify.Message{ID: "m1", To: []string{"parent@example.ma"}})
	w := newTestMailWorker(q, m, 3)
	ctx := context.Background()

	w.processNext(ctx)
	w.processNext(ctx)
	require.Len(t, q.lists[config.WorkerKey.MailOutboxQueue], 1)
	var pending notify.Message
	require.NoError(t, json.Unmarshal([]byte(q.lists[config.WorkerKey.MailOutboxQueue][0]), &pending))
	assert.Equal(t, 2, pending.Attempts)

	w.processNext(ctx)
	assert.Empty(t, q.lists[config.WorkerKey.MailOutboxQueue])
	require.Len(t, q.lists[config.WorkerKey.MailDeadLetterQueue], 1)
	assert.Empty(t, m.sent)
}

func TestMailWorker_RecoversAfterTransientFailure(t *testing.T) {
	q := newMemoryQueue()
	m := &flakyMailer{failures: 1}
	enqueue(t, q, notify.Message{ID: "m1", To: []string{"parent@example.ma"}})
	w := newTestMailWorker(q, m, 3)

	w.processNext(context.Background())
	w.processNext(context.Background())
	require.Len(t, m.sent, 1)
	assert.Equal(t, 1, m.sent[0].Attempts)
	assert.Empty(t, q.lists[config.WorkerKey.MailDeadLetterQueue])
}

func TestMailWorker_BadPayloadGoesToDeadLetter(t *testing.T) {
	q := newMemoryQueue()
	q.RPush(context.Background(), config.WorkerKey.MailOutboxQueue, "{not json")
	newTestMailWorker(q, &flakyMailer{}, 3).processNext(context.Background())
	assert.Equal(t, []string{"{not json"}, q.lists[config.WorkerKey.MailDeadLetterQueue])
}

func TestMailWorker_DrainOnShutdown(t *testing.T) {
	q := newMemoryQueue()
	m := &flakyMailer{}
	enqueue(t, q, notify.Message{ID: "m1", To: []string{"a@example.ma"}})
	enqueue(t, q, notify.Message{ID: "m2", To: []string{"b@example.ma"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	newTestMailWorker(q, m, 3).Start(ctx)

	assert.Len(t, m.sent, 2)
	assert.Empty(t, q.lists[config.WorkerKey.MailOutboxQueue])
}
