package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWatcher(t *testing.T) (*FolderWatcher, *uploadBackend, string) {
	backend := newUploadBackend(t)
	api := NewAPIClient(backend.server.URL)
	cfg := testUploadCfg()

	uploader := NewUploader(api, cfg, nil)
	poller := NewPoller(api, testPollCfg(), nil)

	watcher := NewFolderWatcher(uploader, poller, cfg)
	watcher.settle = 30 * time.Millisecond

	return watcher, backend, t.TempDir()
}

func TestWatcher_ImportsNewFile(t *testing.T) {
	watcher, backend, dir := setupWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = watcher.Watch(ctx, "case-1", dir) }()

	// 等 watcher 挂上目录
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "新证据.pdf"), []byte("pdf bytes"), 0o644))

	assert.Eventually(t, func() bool {
		return backend.confirmCalls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	backend.mu.Lock()
	data, ok := backend.stored["新证据.pdf"]
	backend.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, []byte("pdf bytes"), data)
}

func TestWatcher_IgnoresIneligibleFiles(t *testing.T) {
	watcher, backend, dir := setupWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = watcher.Watch(ctx, "case-1", dir) }()

	time.Sleep(50 * time.Millisecond)

	// 点开头的临时文件和不在允许列表内的类型都不入队
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".合同.pdf.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "病毒.exe"), []byte("x"), 0o644))

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, backend.batchCalls.Load())
	assert.Zero(t, backend.singleCalls.Load())
}

func TestWatcher_DebouncesWriteBursts(t *testing.T) {
	watcher, backend, dir := setupWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = watcher.Watch(ctx, "case-1", dir) }()

	time.Sleep(50 * time.Millisecond)

	// 模拟大文件分段落盘：多次写入同一文件
	path := filepath.Join(dir, "分段.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.WriteString("片段\n")
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	// 写事件风暴只触发一次导入
	assert.Eventually(t, func() bool {
		return backend.confirmCalls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), backend.batchCalls.Load())
}
