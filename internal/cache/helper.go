package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// GetJSON reads key and unmarshals it into dest. The bool reports a
// hit; a missing key (or disabled cache) is (false, nil), not an error.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if Client == nil {
		return false, nil
	}
	raw, err := Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and stores it under key with the given TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if Client == nil {
		return nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Client.Set(ctx, key, encoded, ttl).Err()
}

// Invalidate drops keys after a write, best-effort. Stale entries age
// out via TTL anyway, so a failed delete is not worth surfacing.
func Invalidate(ctx context.Context, keys ...string) {
	if Client == nil || len(keys) == 0 {
		return
	}
	_ = Client.Del(ctx, keys...).Err()
}

// CacheAside serves key from Redis when possible; on a miss it runs
// fetch (which must populate dest) and stores the result for the next
// reader. The store is best-effort.
func CacheAside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	hit, err := GetJSON(ctx, key, dest)
	if err != nil {
		return err
	}
	if hit {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}
