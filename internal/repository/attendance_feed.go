package repository

import (
	"context"
	"encoding/json"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/redis/go-redis/v9"
)

// AttendanceFeed publishes attendance marks on per-class Redis channels so
// every API instance can relay them to connected WebSocket clients.
type AttendanceFeed struct {
	rdb *redis.Client
}

// NewAttendanceFeed creates a new AttendanceFeed.
func NewAttendanceFeed(rdb *redis.Client) *AttendanceFeed {
	return &AttendanceFeed{rdb: rdb}
}

// Publish sends an event on the class channel.
func (f *AttendanceFeed) Publish(ctx context.Context, ev model.AttendanceEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, config.CacheKey.ClassAttendanceChannel(ev.SchoolClassID), raw).Err()
}

// Subscribe listens to one class, or to every class when classID is nil.
// The caller must Close the returned subscription.
func (f *AttendanceFeed) Subscribe(ctx context.Context, classID *int) *redis.PubSub {
	if classID == nil {
		return f.rdb.PSubscribe(ctx, config.CacheKey.AttendanceChannelPattern())
	}
	return f.rdb.Subscribe(ctx, config.CacheKey.ClassAttendanceChannel(*classID))
}

// DecodeAttendanceEvent parses a feed payload.
func DecodeAttendanceEvent(payload string) (model.AttendanceEvent, error) {
	var ev model.AttendanceEvent
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
