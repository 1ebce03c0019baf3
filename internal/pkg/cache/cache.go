package cache

import (
	"Mercato/internal/pkg/redis"
	"context"
	"time"
)

// Cache 旁路缓存抽象：读穿透回源，写操作负责失效
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// InvalidatePattern 按通配模式失效：先枚举后删除，非原子
	// 枚举与删除之间的并发写入可能残留一个旧键，由 TTL 兜底
	InvalidatePattern(ctx context.Context, pattern string) error
}

type redisCache struct{}

func NewRedisCache() Cache {
	return &redisCache{}
}

func (s *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := redis.GetValue(ctx, key)
	if err != nil {
		return "", false, err
	}
	return value, value != "", nil
}

func (s *redisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return redis.SetWithExpiration(ctx, key, value, ttl)
}

func (s *redisCache) Del(ctx context.Context, key string) error {
	return redis.DeleteKey(ctx, key)
}

func (s *redisCache) InvalidatePattern(ctx context.Context, pattern string) error {
	keys, err := redis.ScanKeys(ctx, pattern)
	if err != nil {
		return err
	}
	return redis.DeleteKeys(ctx, keys...)
}
