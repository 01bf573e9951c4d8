// Package cache 提供带 TTL 语义的键值存储抽象
// 同步引擎的去抖状态必须通过 Store 访问，不允许依赖进程内的全局 map：
// 单实例部署用内存实现，多实例部署换 redis 实现，算法本身不感知差异
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 键不存在或已过期
var ErrNotFound = errors.New("cache: key not found")

// Store 带 TTL 的键值存储接口
type Store interface {
	// Get 读取键值，不存在或已过期返回 ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入键值并设置存活时间
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除键，键不存在不视为错误
	Delete(ctx context.Context, key string) error
}
