// Package cache layers JSON cache-aside helpers over a shared Redis
// client. The cache is strictly optional: every helper degrades to a
// no-op (and reads fall through to the database) when Redis is absent.
package cache

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the shared connection. nil means "no cache".
var Client *redis.Client

// InitRedis connects the package-level client. Accepts either a bare
// host:port or a redis:// URL. An unreachable Redis is logged and
// ignored; the application runs uncached.
func InitRedis(addr string) {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if parsed, err := redis.ParseURL(addr); err == nil {
			opts = parsed
		}
	}
	Client = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection warning: %v (continuing without cache)", err)
		Client = nil
		return
	}
	log.Println("Redis connected successfully")
}

// GetClient returns the shared client, nil when the cache is disabled.
func GetClient() *redis.Client {
	return Client
}
