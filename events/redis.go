package events

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/vennlabs/payrelay/types"
)

// DefaultStream is the Redis stream terminal events are appended to.
const DefaultStream = "payrelay:events"

// RedisEmitter appends events to a Redis stream so off-process indexers can
// consume terminal saga outcomes without scraping logs.
type RedisEmitter struct {
	rdb    *redis.Client
	stream string
}

// NewRedisEmitter builds an emitter over an existing Redis client. An empty
// stream name selects DefaultStream.
func NewRedisEmitter(rdb *redis.Client, stream string) *RedisEmitter {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisEmitter{rdb: rdb, stream: stream}
}

// Emit XADDs the JSON event under the "event" field.
func (e *RedisEmitter) Emit(ctx context.Context, event types.PaymentEvent) error {
	payload, err := sonic.MarshalString(event)
	if err != nil {
		return err
	}
	return e.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: e.stream,
		Values: map[string]interface{}{
			"payment_reference": event.PaymentReference,
			"event":             payload,
		},
	}).Err()
}

var _ Emitter = (*RedisEmitter)(nil)
