package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window counter shared by every server instance using the
// same Redis database.
type Redis struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	prefix string
}

func NewRedis(client redis.Cmdable, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: int64(limit), window: window, prefix: "farmgate:otp:"}
}

// Allow counts the attempt and reports whether it is within the limit. When
// Redis is unreachable it allows the attempt and returns the error so the
// caller can log it.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := r.prefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis limiter: %w", err)
	}

	return incr.Val() <= r.limit, nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis limiter: %w", err)
	}
	return nil
}
