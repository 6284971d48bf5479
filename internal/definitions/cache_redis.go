package definitions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "define:"

// RedisStore keeps definition entries in Redis with the configured TTL,
// letting several caption sessions on the same host share lookups. Redis
// errors degrade to cache misses; the definition path never fails because
// the cache is down.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed store and verifies connectivity.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	logger.Info("redis definition cache connected", zap.String("addr", addr))
	return &RedisStore{client: client, ttl: ttl, logger: logger}, nil
}

// Get fetches a cached result. Missing keys and transport errors are misses.
func (s *RedisStore) Get(key string) (Result, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("redis cache get failed", zap.Error(err))
		}
		return Result{}, false
	}
	var v Result
	if err := json.Unmarshal(raw, &v); err != nil {
		s.logger.Warn("invalid cache entry", zap.String("key", key), zap.Error(err))
		return Result{}, false
	}
	return v, true
}

// Put stores a result with the configured TTL. Failures are logged only.
func (s *RedisStore) Put(key string, v Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, raw, s.ttl).Err(); err != nil {
		s.logger.Debug("redis cache put failed", zap.Error(err))
	}
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
