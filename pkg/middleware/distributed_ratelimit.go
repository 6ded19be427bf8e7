package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/helpdesk/pkg/observability"
)

// DistributedRateLimiter is a fixed window limiter shared through Redis by
// every instance of the service
type DistributedRateLimiter struct {
	redis   *redis.Client
	config  *RateLimitConfig
	prefix  string
	metrics *observability.Metrics
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string, metrics *observability.Metrics) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "helpdesk:ratelimit"
	}

	return &DistributedRateLimiter{
		redis:   redisClient,
		config:  config,
		prefix:  prefix,
		metrics: metrics,
	}
}

func (rl *DistributedRateLimiter) key(key string) string {
	return fmt.Sprintf("%s:%s", rl.prefix, key)
}

// Config returns the limiter settings
func (rl *DistributedRateLimiter) Config() *RateLimitConfig {
	return rl.config
}

// Allow counts a request in the current window
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rl.key(key)
	start := time.Now()

	count, err := rl.redis.Incr(ctx, redisKey).Result()
	if err == nil && count == 1 {
		// First request of a window starts the clock
		err = rl.redis.Expire(ctx, redisKey, rl.config.WindowDuration).Err()
	}
	rl.metrics.ObserveRedisCommand("incr", start, err)
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}

	limit := int64(rl.config.RequestsPerWindow + rl.config.BurstSize)
	return count <= limit, nil
}

// Remaining returns the number of requests left in the window
func (rl *DistributedRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	limit := rl.config.RequestsPerWindow + rl.config.BurstSize

	count, err := rl.redis.Get(ctx, rl.key(key)).Int()
	if err == redis.Nil {
		return limit, nil
	} else if err != nil {
		return 0, err
	}

	if remaining := limit - count; remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

// TTL returns the time until the window resets
func (rl *DistributedRateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rl.redis.TTL(ctx, rl.key(key)).Result()
}

// Reset clears the window for a key
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, rl.key(key)).Err()
}
