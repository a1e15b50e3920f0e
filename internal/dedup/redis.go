package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard is a Guard backed by Redis SET NX with a TTL, giving at-most-once
// semantics across dispatcher instances. Key expiry is handled server-side.
type RedisGuard struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisGuard creates a RedisGuard with the given retention window.
func NewRedisGuard(client *redis.Client, retention time.Duration) *RedisGuard {
	return &RedisGuard{client: client, retention: retention}
}

// MarkIfUnseen implements Guard. SET NX is atomic on the server, so two
// concurrent callers with the same key cannot both observe true.
func (g *RedisGuard) MarkIfUnseen(ctx context.Context, namespace, key string) (bool, error) {
	k := "dedup:" + namespace + ":" + key
	recorded, err := g.client.SetNX(ctx, k, 1, g.retention).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return recorded, nil
}
