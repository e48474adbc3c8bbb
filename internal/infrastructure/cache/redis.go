package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fridday/backend/internal/config"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/redis/go-redis/v9"
)

// RedisCache is the short-term session memory. Values are stored as
// JSON so callers stay type-agnostic, matching the conversations the
// chat flow mirrors into it.
type RedisCache struct {
	rdb *redis.Client
	log *logger.Logger
}

func New(cfg config.RedisConfig, log *logger.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = cfg.DialTimeout
	return &RedisCache{rdb: redis.NewClient(opts), log: log}, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		c.log.Warnw("cache_set_failed", "key", key, "error", err)
		return err
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ErrCacheMiss
	}
	if err != nil {
		c.log.Warnw("cache_get_failed", "key", key, "error", err)
		return err
	}
	return json.Unmarshal(b, dest)
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// Ping verifies the connection at startup.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
