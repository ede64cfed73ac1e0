// Package cache is a small JSON cache in front of derived views, backed by Redis when configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pysugar/drivesweep/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "drivesweep:"

// Cache stores JSON-encoded values by key.
type Cache interface {
	// Get decodes the value into dst and reports whether it was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

// New returns a Redis cache when cfg.URL is set, Nop otherwise.
func New(ctx context.Context, cfg config.RedisConfig) (Cache, error) {
	if cfg.URL == "" {
		log.Info().Msg("💤 Redis not configured, stats are computed on every request")
		return Nop{}, nil
	}
	r, err := NewRedis(cfg.URL, cfg.TTL)
	if err != nil {
		return nil, err
	}
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}
	log.Info().Dur("ttl", cfg.TTL).Msg("🧊 Redis cache ready")
	return r, nil
}

// Redis is a Cache on go-redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects lazily using a redis:// URL.
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(ctx context.Context, key string, dst any) (bool, error) { return false, nil }
func (Nop) Set(ctx context.Context, key string, v any) error           { return nil }
func (Nop) Delete(ctx context.Context, keys ...string) error           { return nil }

// StatsKey is the cache key of a user's stats.
func StatsKey(userID string) string {
	return "stats:" + userID
}
