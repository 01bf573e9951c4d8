package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()

	err := store.Set(ctx, "key1", []byte("value1"), time.Minute)
	require.NoError(t, err)

	val, err := store.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), val)

	// 不存在的键
	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	// 注入可控时钟
	now := time.Now()
	clock := func() time.Time { return now }
	store := newMemoryStoreWithClock(func() time.Time { return clock() })

	ctx := context.Background()

	err := store.Set(ctx, "key1", []byte("value1"), 10*time.Second)
	require.NoError(t, err)

	// 未过期
	now = now.Add(9 * time.Second)
	_, err = store.Get(ctx, "key1")
	assert.NoError(t, err)

	// 已过期
	now = now.Add(2 * time.Second)
	_, err = store.Get(ctx, "key1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key1", []byte("v"), time.Minute))
	require.NoError(t, store.Delete(ctx, "key1"))

	_, err := store.Get(ctx, "key1")
	assert.ErrorIs(t, err, ErrNotFound)

	// 删除不存在的键不报错
	assert.NoError(t, store.Delete(ctx, "missing"))
}

func TestMemoryStoreSweep(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := newMemoryStoreWithClock(func() time.Time { return clock() })

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Second))
	require.NoError(t, store.Set(ctx, "long", []byte("v"), time.Hour))

	now = now.Add(time.Minute)
	store.sweep()

	store.mu.RLock()
	defer store.mu.RUnlock()
	assert.NotContains(t, store.entries, "short")
	assert.Contains(t, store.entries, "long")
}
