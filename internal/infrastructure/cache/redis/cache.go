package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

// Cache stores ranked result lists in redis under a key prefix. TTL expiry is
// native; capacity is redis's concern (maxmemory policy). Transport and codec
// failures are logged and degrade to cache misses so a broken cache never
// fails a retrieval.
type Cache struct {
	client *redis.Client
	prefix string
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func New(opts Options) *Cache {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "fedret:results:"
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		prefix: prefix,
	}
}

func (c *Cache) Get(ctx context.Context, key string) ([]domain.Candidate, bool) {
	payload, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis_cache_get_failed", "error", err)
		}
		return nil, false
	}

	var candidates []domain.Candidate
	if err := json.Unmarshal(payload, &candidates); err != nil {
		slog.Warn("redis_cache_decode_failed", "error", err)
		return nil, false
	}
	return candidates, true
}

func (c *Cache) Set(ctx context.Context, key string, candidates []domain.Candidate, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	payload, err := json.Marshal(candidates)
	if err != nil {
		slog.Warn("redis_cache_encode_failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, payload, ttl).Err(); err != nil {
		slog.Warn("redis_cache_set_failed", "error", err)
	}
}

func (c *Cache) Close() error {
	return c.client.Close()
}
