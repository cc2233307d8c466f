package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"posterm/internal/config"
	"posterm/internal/domain"
	"posterm/internal/logger"
)

// Redis stores the catalog in a Redis instance shared by several terminals.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// NewRedis connects to Redis per cfg and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg config.CacheConfig) (*Redis, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client, ttl: cfg.ItemTTL}, nil
}

// Get implements ItemCache.
func (r *Redis) Get(ctx context.Context) ([]domain.Item, error) {
	raw, err := r.client.Get(ctx, catalogKey).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var items []domain.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cached catalog: %w", err)
	}
	return items, nil
}

// Set implements ItemCache.
func (r *Redis) Set(ctx context.Context, items []domain.Item) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := r.client.Set(ctx, catalogKey, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate implements ItemCache.
func (r *Redis) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, catalogKey).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// FromConfig builds the configured ItemCache. When Redis is requested but
// unreachable it logs a warning and falls back to the in-memory cache, so a
// terminal still boots with the broker down.
func FromConfig(ctx context.Context, cfg config.CacheConfig) ItemCache {
	log := logger.WithComponent("cache")
	if cfg.UseRedis {
		rc, err := NewRedis(ctx, cfg)
		if err == nil {
			log.Info().Msg("Using Redis item cache")
			return rc
		}
		log.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory item cache")
	}
	return NewMemory(cfg.ItemTTL)
}
