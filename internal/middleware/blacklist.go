package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenBlacklist backs TokenBlacklist with Redis so a revoked token
// stays revoked across server instances. Entries expire with the token
// itself, keeping the set self-pruning.
type RedisTokenBlacklist struct {
	client *redis.Client
}

func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

// Blacklist revokes a token until its natural expiry.
func (b *RedisTokenBlacklist) Blacklist(ctx context.Context, token string, expiration time.Duration) error {
	return b.client.Set(ctx, "auth:revoked:"+token, "1", expiration).Err()
}

// IsBlacklisted reports whether the token has been revoked.
func (b *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	exists, err := b.client.Exists(ctx, "auth:revoked:"+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
