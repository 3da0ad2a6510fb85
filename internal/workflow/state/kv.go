// Package state 提供工作流记录的键值持久化，支持 TTL。
// 内存实现与 Redis 实现语义一致，可在不改变上层语义的前提下互换。
package state

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound 键不存在或已过期
var ErrKeyNotFound = errors.New("state: key not found")

// KVStore 带可选 TTL 的键值存储
// ttl <= 0 表示永不过期
type KVStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	// Keys 返回匹配 glob 模式（仅支持 * ? [] 语法）的所有键
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Sweeper 需要主动清理过期键的存储实现此接口
type Sweeper interface {
	Sweep(ctx context.Context) int
}
