package cache

import (
	"context"
	"sync"
	"time"
)

// 过期条目的后台清扫间隔
const janitorInterval = 30 * time.Second

// 确保 MemoryStore 实现了 Store 接口
var _ Store = (*MemoryStore)(nil)

// entry 内存缓存条目
type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore 进程内的 Store 实现
// 仅适用于单实例部署
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]entry
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore 创建内存缓存并启动后台清扫
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	go s.runJanitor()
	return s
}

// newMemoryStoreWithClock 注入时钟的构造函数（仅用于测试）
func newMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]entry),
		now:      now,
		stopChan: make(chan struct{}),
	}
}

// Get 读取键值
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || s.now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Set 写入键值
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = entry{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
	s.mu.Unlock()
	return nil
}

// Delete 删除键
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Close 停止后台清扫
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// runJanitor 定期清除过期条目，防止长期运行时 map 无界增长
func (s *MemoryStore) runJanitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			return
		}
	}
}

// sweep 清除过期条目
func (s *MemoryStore) sweep() {
	now := s.now()

	s.mu.Lock()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}
