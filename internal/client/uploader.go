package client

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/CaseMark/discovery-desktop/internal/application/ingest"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
)

// TaskState 上传任务状态
type TaskState string

// 任务状态常量
// completed 表示"已交接给远程处理"，不等于已可检索
const (
	TaskQueued     TaskState = "queued"
	TaskUploading  TaskState = "uploading"
	TaskUploaded   TaskState = "uploaded"
	TaskProcessing TaskState = "processing"
	TaskCompleted  TaskState = "completed"
	TaskError      TaskState = "error"
)

// 进度里程碑
const (
	progressAcquireStart = 5
	progressAcquired     = 15
	progressTransferred  = 70
	progressDone         = 100
)

// UploadTask 单个文件的上传任务
type UploadTask struct {
	mu sync.Mutex

	Path        string
	Filename    string
	ContentType string
	DocumentID  string
	UploadURL   string
	State       TaskState
	Progress    int
	Err         error
}

// set 更新任务状态并回调进度
func (t *UploadTask) set(state TaskState, progress int, onProgress ProgressFunc) {
	t.mu.Lock()
	t.State = state
	if progress > t.Progress {
		t.Progress = progress
	}
	t.mu.Unlock()

	if onProgress != nil {
		onProgress(t)
	}
}

// fail 标记任务失败
func (t *UploadTask) fail(err error, onProgress ProgressFunc) {
	t.mu.Lock()
	t.State = TaskError
	t.Err = err
	t.mu.Unlock()

	if onProgress != nil {
		onProgress(t)
	}
}

// ProgressFunc 进度回调，UI 层据此刷新展示
type ProgressFunc func(task *UploadTask)

// Uploader 批量上传编排器
// 把一批本地文件按子批次推进 登记→直传→确认 三个阶段：
// 子批次之间串行，子批次内三个阶段各自对文件并行
type Uploader struct {
	api        *APIClient
	cfg        *config.UploadConfig
	onProgress ProgressFunc
	logger     *slog.Logger
}

// NewUploader 创建上传编排器
func NewUploader(api *APIClient, cfg *config.UploadConfig, onProgress ProgressFunc) *Uploader {
	return &Uploader{
		api:        api,
		cfg:        cfg,
		onProgress: onProgress,
		logger:     log.NewModuleLogger("client", "uploader"),
	}
}

// NewTasks 把文件路径转换为上传任务，拒绝不在允许列表内的类型
func (u *Uploader) NewTasks(paths []string) ([]*UploadTask, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("没有待上传的文件")
	}
	if len(paths) > u.cfg.MaxBatchSize {
		return nil, fmt.Errorf("单批最多 %d 个文件，收到 %d 个", u.cfg.MaxBatchSize, len(paths))
	}

	tasks := make([]*UploadTask, 0, len(paths))
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		if !u.allowed(ext) {
			return nil, fmt.Errorf("不支持的文件类型: %s", path)
		}

		contentType := mime.TypeByExtension(ext)
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		tasks = append(tasks, &UploadTask{
			Path:        path,
			Filename:    filepath.Base(path),
			ContentType: contentType,
			State:       TaskQueued,
		})
	}
	return tasks, nil
}

func (u *Uploader) allowed(ext string) bool {
	for _, a := range u.cfg.AllowedTypes {
		if ext == a {
			return true
		}
	}
	return false
}

// Upload 执行整批上传
// 返回全部任务（含失败项）；只有整批性错误（如案件不存在）才返回 error
func (u *Uploader) Upload(ctx context.Context, caseID string, tasks []*UploadTask) error {
	for start := 0; start < len(tasks); start += u.cfg.SubBatchSize {
		end := start + u.cfg.SubBatchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		if err := u.processSubBatch(ctx, caseID, tasks[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// processSubBatch 推进一个子批次
func (u *Uploader) processSubBatch(ctx context.Context, caseID string, batch []*UploadTask) error {
	acquired := u.acquire(ctx, caseID, batch)
	if len(acquired) == 0 {
		return nil
	}

	transferred := u.transfer(ctx, acquired)
	if len(transferred) == 0 {
		return nil
	}

	return u.confirm(ctx, caseID, transferred)
}

// acquire 登记阶段：批量申请存储目标与文档记录
// 批量调用失败时退化为逐个登记（功能等价的降级路径）
func (u *Uploader) acquire(ctx context.Context, caseID string, batch []*UploadTask) []*UploadTask {
	specs := make([]ingest.FileSpec, 0, len(batch))
	for _, t := range batch {
		t.set(TaskQueued, progressAcquireStart, u.onProgress)
		specs = append(specs, ingest.FileSpec{Filename: t.Filename, ContentType: t.ContentType})
	}

	result, err := u.api.RegisterBatch(ctx, caseID, specs)
	if err != nil {
		u.logger.Warn("批量登记失败，退化为逐个登记", "case_id", caseID, "error", err)
		return u.acquireSequential(ctx, caseID, batch)
	}

	// Summary.Items 与请求同序，Documents 按成功项同序；
	// 按位置回填，不能按文件名匹配（同名文件会互相覆盖）
	if len(result.Summary.Items) != len(batch) {
		u.logger.Warn("批量登记结果数量不符，退化为逐个登记",
			"case_id", caseID, "want", len(batch), "got", len(result.Summary.Items))
		return u.acquireSequential(ctx, caseID, batch)
	}

	acquired := make([]*UploadTask, 0, len(result.Documents))
	docIdx := 0
	for i, item := range result.Summary.Items {
		t := batch[i]
		if !item.Success {
			t.fail(fmt.Errorf("登记失败: %s", item.Error), u.onProgress)
			continue
		}
		if docIdx >= len(result.Documents) {
			t.fail(fmt.Errorf("登记结果缺少文档记录: %s", t.Filename), u.onProgress)
			continue
		}
		doc := result.Documents[docIdx]
		docIdx++
		t.DocumentID = doc.DocumentID
		t.UploadURL = doc.UploadURL
		t.set(TaskUploading, progressAcquired, u.onProgress)
		acquired = append(acquired, t)
	}
	return acquired
}

// acquireSequential 逐个登记的降级路径
func (u *Uploader) acquireSequential(ctx context.Context, caseID string, batch []*UploadTask) []*UploadTask {
	acquired := make([]*UploadTask, 0, len(batch))
	for _, t := range batch {
		reg, err := u.api.Register(ctx, caseID, ingest.FileSpec{
			Filename:    t.Filename,
			ContentType: t.ContentType,
		})
		if err != nil {
			t.fail(fmt.Errorf("登记失败: %w", err), u.onProgress)
			continue
		}
		t.DocumentID = reg.DocumentID
		t.UploadURL = reg.UploadURL
		t.set(TaskUploading, progressAcquired, u.onProgress)
		acquired = append(acquired, t)
	}
	return acquired
}

// transfer 直传阶段：并行把文件内容传到各自的预签名地址
func (u *Uploader) transfer(ctx context.Context, batch []*UploadTask) []*UploadTask {
	var mu sync.Mutex
	transferred := make([]*UploadTask, 0, len(batch))

	g, gCtx := errgroup.WithContext(ctx)
	for _, t := range batch {
		t := t
		g.Go(func() error {
			if err := u.api.Transfer(gCtx, t.UploadURL, t.Path, t.ContentType); err != nil {
				t.fail(fmt.Errorf("传输失败: %w", err), u.onProgress)
				// 单个文件失败不中断其他传输
				return nil
			}
			t.set(TaskUploaded, progressTransferred, u.onProgress)
			mu.Lock()
			transferred = append(transferred, t)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return transferred
}

// confirm 确认阶段：批量提交传输成功的文档，触发远程摄取
// 确认返回即视为交接完成，后续进度交给轮询器
func (u *Uploader) confirm(ctx context.Context, caseID string, batch []*UploadTask) error {
	ids := make([]string, 0, len(batch))
	byID := make(map[string]*UploadTask, len(batch))
	for _, t := range batch {
		ids = append(ids, t.DocumentID)
		byID[t.DocumentID] = t
		t.set(TaskProcessing, progressTransferred, u.onProgress)
	}

	summary, err := u.api.Confirm(ctx, caseID, ids)
	if err != nil {
		for _, t := range batch {
			t.fail(fmt.Errorf("确认失败: %w", err), u.onProgress)
		}
		return err
	}

	for _, item := range summary.Items {
		t, ok := byID[item.DocumentID]
		if !ok {
			continue
		}
		if item.Success {
			t.set(TaskCompleted, progressDone, u.onProgress)
		} else {
			t.fail(fmt.Errorf("触发摄取失败: %s", item.Error), u.onProgress)
		}
	}
	return nil
}
