package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/helpdesk/pkg/observability"
)

// DefaultKeyPrefix namespaces session hashes in Redis
const DefaultKeyPrefix = "helpdesk:session"

// RedisConfig configures a RedisStore
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
	KeyPrefix  string
	TTL        time.Duration
}

// RedisStore keeps each session as a Redis hash "<prefix>:<session id>"
type RedisStore struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewRedisClient opens and pings a Redis connection
func NewRedisClient(config RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.Password != "" {
		opts.Password = config.Password
	}
	if config.DB > 0 {
		opts.DB = config.DB
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// NewRedisStore creates a store on an existing client. The store does not
// own the client unless it was created by OpenRedisStore.
func NewRedisStore(client *redis.Client, config RedisConfig, metrics *observability.Metrics) *RedisStore {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		ttl:     config.TTL,
		metrics: metrics,
	}
}

// OpenRedisStore connects to Redis and creates a store on the connection
func OpenRedisStore(config RedisConfig, metrics *observability.Metrics) (*RedisStore, error) {
	client, err := NewRedisClient(config)
	if err != nil {
		return nil, err
	}
	return NewRedisStore(client, config, metrics), nil
}

func (s *RedisStore) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, sessionID)
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	start := time.Now()
	data, err := s.client.HGet(ctx, s.key(sessionID), key).Bytes()
	if err == redis.Nil {
		s.metrics.ObserveRedisCommand("hget", start, nil)
		return nil, ErrNotFound
	}
	s.metrics.ObserveRedisCommand("hget", start, err)
	if err != nil {
		return nil, fmt.Errorf("redis hget failed: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key string, value []byte) error {
	start := time.Now()
	k := s.key(sessionID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, key, value)
		if s.ttl > 0 {
			pipe.Expire(ctx, k, s.ttl)
		}
		return nil
	})
	s.metrics.ObserveRedisCommand("hset", start, err)
	if err != nil {
		return fmt.Errorf("redis hset failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	start := time.Now()
	n, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	s.metrics.ObserveRedisCommand("exists", start, err)
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	start := time.Now()
	err := s.client.Del(ctx, s.key(sessionID)).Err()
	s.metrics.ObserveRedisCommand("del", start, err)
	if err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Client returns the underlying Redis client, for health checks and rate
// limiting
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
