package bridge

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "extmsg:"

// Deduper filters inbound external messages that were already
// processed, so provider redelivery does not replay a board mutation.
type Deduper interface {
	// Add records the message id and returns true when it is new.
	Add(ctx context.Context, id string) (bool, error)
}

// RedisDeduper stores processed message ids in Redis with a TTL so all
// instances skip redeliveries.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) Add(ctx context.Context, id string) (bool, error) {
	return r.client.SetNX(ctx, dedupeKeyPrefix+id, 1, r.ttl).Result()
}
