package client

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
)

// settleDelay 文件停止写入多久后视为落盘完成
// 复制大文件会产生一连串 Write 事件，尾部去抖到最后一次
const settleDelay = 2 * time.Second

// FolderWatcher 监听导入目录，新文件稳定后自动入队上传
type FolderWatcher struct {
	uploader *Uploader
	poller   *Poller
	cfg      *config.UploadConfig
	logger   *slog.Logger
	settle   time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewFolderWatcher 创建目录监听器
func NewFolderWatcher(uploader *Uploader, poller *Poller, cfg *config.UploadConfig) *FolderWatcher {
	return &FolderWatcher{
		uploader: uploader,
		poller:   poller,
		cfg:      cfg,
		logger:   log.NewModuleLogger("client", "watcher"),
		settle:   settleDelay,
		pending:  make(map[string]*time.Timer),
	}
}

// Watch 监听一个案件的导入目录直到 ctx 取消
func (w *FolderWatcher) Watch(ctx context.Context, caseID, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	w.logger.Info("开始监听导入目录", "case_id", caseID, "dir", dir)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.eligible(event.Name) {
				continue
			}
			w.schedule(ctx, caseID, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("目录监听错误", "dir", dir, "error", err)
		}
	}
}

// eligible 判断文件是否应该入队
func (w *FolderWatcher) eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range w.cfg.AllowedTypes {
		if ext == a {
			return true
		}
	}
	return false
}

// schedule 对单个文件做尾部去抖：每次写事件都重置计时器
func (w *FolderWatcher) schedule(ctx context.Context, caseID, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}

	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		w.importFile(ctx, caseID, path)
	})
}

// importFile 把稳定的文件交给上传编排器并唤醒轮询器
func (w *FolderWatcher) importFile(ctx context.Context, caseID, path string) {
	if _, err := os.Stat(path); err != nil {
		// 文件在去抖等待期间被移走
		return
	}

	tasks, err := w.uploader.NewTasks([]string{path})
	if err != nil {
		w.logger.Warn("文件入队失败", "path", path, "error", err)
		return
	}

	if err := w.uploader.Upload(ctx, caseID, tasks); err != nil {
		w.logger.Error("自动上传失败", "path", path, "error", err)
		return
	}

	w.logger.Info("文件已自动上传", "case_id", caseID, "path", path)
	w.poller.Start(ctx, caseID)
	w.poller.Kick()
}

// cancelPending 取消所有待处理的文件计时器
func (w *FolderWatcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}
