package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kestrelnet/kestrel/core"
)

// RedisStorage is a supplemental CacheStorage tier over Redis, for
// deployments that want a shared cache across client instances or
// processes (SPEC_FULL §4.4). It is interchangeable with Memory/Disk/
// Hybrid behind the same core.CacheStorage interface.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage builds a Redis-backed tier. Keys are namespaced under
// prefix (e.g. "kestrel:cache:").
func NewRedisStorage(client *redis.Client, prefix string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStorage) redisKey(key string) string {
	return r.prefix + key
}

func (r *RedisStorage) CachedEntry(req core.Request) (core.CacheEntry, bool) {
	ctx := context.Background()
	key := CacheKey(req)
	data, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			return core.CacheEntry{}, false
		}
		return core.CacheEntry{}, false
	}

	var rec diskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		r.client.Del(ctx, r.redisKey(key))
		return core.CacheEntry{}, false
	}

	entry := recordToEntry(req, rec)
	if !entry.IsFresh(time.Now(), r.ttl) {
		return core.CacheEntry{}, false
	}
	return entry, true
}

func (r *RedisStorage) CachedResponse(req core.Request) (core.Response, bool) {
	entry, ok := r.CachedEntry(req)
	if !ok {
		return core.Response{}, false
	}
	return entry.Response, true
}

func (r *RedisStorage) Store(entry core.CacheEntry) error {
	if entry.ShouldNotStore() {
		return nil
	}
	rec := entryToRecord(entry)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := r.redisKey(CacheKey(entry.Response.Request))
	return r.client.Set(context.Background(), key, data, r.ttl).Err()
}

func (r *RedisStorage) Remove(req core.Request) error {
	return r.client.Del(context.Background(), r.redisKey(CacheKey(req))).Err()
}

// ClearExpired is a no-op: Redis expires keys itself via the TTL passed
// to Store.
func (r *RedisStorage) ClearExpired() error {
	return nil
}

func (r *RedisStorage) ClearAll() error {
	ctx := context.Background()
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
