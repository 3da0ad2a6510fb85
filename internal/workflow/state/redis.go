package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// RedisKV 基于 Redis 的实现，过期交给 Redis 原生 TTL
type RedisKV struct {
	redis redis.UniversalClient
}

// NewRedisKV 创建 Redis 存储
func NewRedisKV(redisClient redis.UniversalClient) *RedisKV {
	return &RedisKV{redis: redisClient}
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("保存状态失败: %w", err)
	}
	return nil
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("获取状态失败: %w", err)
	}
	return data, nil
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	// 集群模式下多键 DEL 可能跨槽，逐个删除
	if _, ok := r.redis.(*redis.ClusterClient); ok {
		for _, k := range keys {
			if err := r.redis.Del(ctx, k).Err(); err != nil {
				return fmt.Errorf("删除状态失败: %w", err)
			}
		}
		return nil
	}
	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("删除状态失败: %w", err)
	}
	return nil
}

// Keys 使用 SCAN 遍历，避免 KEYS 阻塞 Redis
func (r *RedisKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	if cluster, ok := r.redis.(*redis.ClusterClient); ok {
		var (
			mu   sync.Mutex
			keys []string
		)
		err := cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			found, err := scanAll(ctx, node, pattern)
			if err != nil {
				return err
			}
			mu.Lock()
			keys = append(keys, found...)
			mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("扫描键失败: %w", err)
		}
		sort.Strings(keys)
		return keys, nil
	}

	keys, err := scanAll(ctx, r.redis, pattern)
	if err != nil {
		return nil, fmt.Errorf("扫描键失败: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func scanAll(ctx context.Context, c redis.Cmdable, pattern string) ([]string, error) {
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	var cursor uint64
	for {
		batch, next, err := c.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			// SCAN 可能返回重复键
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
