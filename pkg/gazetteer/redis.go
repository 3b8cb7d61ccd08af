package gazetteer

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores index entries in Redis under a key prefix with a TTL.
type RedisCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps a client. The prefix separates applications sharing
// one Redis database; CachedIndex adds the gazetteer generation to each key.
func NewRedisCache(rc *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{rc: rc, prefix: prefix, ttl: ttl}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.rc.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return r.rc.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

// OpenRedisFromEnv returns a client for REDIS_ADDR (with REDIS_PASSWORD and
// REDIS_DB), or nil when REDIS_ADDR is unset.
func OpenRedisFromEnv() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), DB: db})
}
