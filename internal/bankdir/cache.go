package bankdir

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"payreq/internal/domain"
)

// RedisDirectoryCache caches resolved directory entries in Redis.
type RedisDirectoryCache struct {
	client *redis.Client
}

func NewRedisDirectoryCache(client *redis.Client) DirectoryCache {
	return &RedisDirectoryCache{client: client}
}

func (c *RedisDirectoryCache) Get(ctx context.Context, identifier string) (*domain.BankInfo, error) {
	data, err := c.client.Get(ctx, cacheKey(identifier)).Result()
	if err != nil {
		return nil, err
	}

	var info domain.BankInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil, err
	}

	return &info, nil
}

func (c *RedisDirectoryCache) Set(ctx context.Context, identifier string, info *domain.BankInfo, ttl time.Duration) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, cacheKey(identifier), data, ttl).Err()
}

func cacheKey(identifier string) string {
	return fmt.Sprintf("bankdir:%s", identifier)
}
