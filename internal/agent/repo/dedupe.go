// Package repo holds Redis-backed persistence helpers for the agent.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	logx "github.com/fdsanalytics/analytics-agent/server/pkg/logger"
)

// MessageDeduper answers whether an inbound message id has been seen before.
type MessageDeduper interface {
	Seen(ctx context.Context, messageID string) bool
}

// RedisDeduper marks message ids with SETNX under a TTL. Redis failures are
// treated as "not seen" so delivery degrades to at-least-once processing.
type RedisDeduper struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisDeduper(rdb redis.Cmdable, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (r *RedisDeduper) dedupeKey(messageID string) string {
	return fmt.Sprintf("message:dedupe:%s", messageID)
}

func (r *RedisDeduper) Seen(ctx context.Context, messageID string) bool {
	if messageID == "" {
		return false
	}
	key := r.dedupeKey(messageID)
	set, err := r.rdb.SetNX(ctx, key, 1, r.ttl).Result()
	if err != nil {
		logx.Warn().Err(err).Str("key", key).Msg("Dedupe check failed, processing message anyway")
		return false
	}
	return !set
}
