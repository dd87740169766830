package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"commerce-backoffice/internal/domain"
	"github.com/go-redis/redis/v8"
)

const cacheKeyPrefix = "rates:"

// RedisCache stores rate tables as JSON values with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns nil without error on a cache miss.
func (c *RedisCache) Get(ctx context.Context, base string) (*domain.RateTable, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+base).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var t domain.RateTable
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *RedisCache) Set(ctx context.Context, table domain.RateTable) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return err
	}
	ttl := c.ttl
	if until := time.Until(table.NextUpdate); until > 0 && (ttl <= 0 || until < ttl) {
		ttl = until
	}
	return c.client.Set(ctx, cacheKeyPrefix+table.Base, raw, ttl).Err()
}
