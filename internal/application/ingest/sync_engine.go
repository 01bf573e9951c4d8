package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/cache"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/websocket"
)

// syncCacheEntry 每个案件的同步去抖记录
// 保存在 TTL 缓存中，条目过期即视为从未同步过
type syncCacheEntry struct {
	// LastSync 上次成功发起远程同步的时间（Unix 毫秒）
	LastSync int64 `json:"last_sync"`
	// HadProcessing 上次同步时是否有文档处于 processing
	HadProcessing bool `json:"had_processing"`
}

// SyncEngine 状态同步引擎
// 把本地文档状态与远程 vault 对象列表对账，用去抖缓存限制远程调用频率
// 同步失败永远不影响调用方：返回同步前的本地数据并清除去抖记录以便尽快重试
type SyncEngine struct {
	docRepo document.Repository
	remote  RemoteGateway
	store   cache.Store
	cfg     *config.SyncConfig
	trigger *AnalysisTrigger
	hub     *websocket.Hub
	logger  *slog.Logger

	// now 可注入时钟，测试用
	now func() time.Time
}

// NewSyncEngine 创建状态同步引擎
// hub 可为 nil（不推送状态变更）
func NewSyncEngine(
	docRepo document.Repository,
	remote RemoteGateway,
	store cache.Store,
	cfg *config.SyncConfig,
	trigger *AnalysisTrigger,
	hub *websocket.Hub,
) *SyncEngine {
	return &SyncEngine{
		docRepo: docRepo,
		remote:  remote,
		store:   store,
		cfg:     cfg,
		trigger: trigger,
		hub:     hub,
		logger:  log.NewModuleLogger("ingest", "sync_engine"),
		now:     time.Now,
	}
}

func syncCacheKey(caseID string) string {
	return fmt.Sprintf("sync:case:%s", caseID)
}

// Sync 对账一个案件的文档状态
// docs 是当前本地文档列表；返回（可能已就地更新的）同一列表
// 受去抖窗口约束时直接返回本地数据，不发起远程调用
func (e *SyncEngine) Sync(ctx context.Context, c *cases.Case, docs []*document.DocumentRecord) []*document.DocumentRecord {
	unsettled := make([]*document.DocumentRecord, 0, len(docs))
	hadProcessing := false
	for _, d := range docs {
		if !d.Settled() {
			unsettled = append(unsettled, d)
			if d.Status == document.StatusProcessing {
				hadProcessing = true
			}
		}
	}

	// 全部定型，无需远程调用
	if len(unsettled) == 0 {
		return docs
	}

	if !e.shouldSync(ctx, c.ID, hadProcessing) {
		return docs
	}

	e.recordSync(ctx, c.ID, hadProcessing)

	objects, err := e.remote.ListObjects(ctx, c.VaultID)
	if err != nil {
		// 远程故障不向上传播：返回旧数据，清除去抖记录让下次调用立即重试
		e.logger.Warn("远程对象列表获取失败，返回本地数据", "case_id", c.ID, "error", err)
		if delErr := e.store.Delete(ctx, syncCacheKey(c.ID)); delErr != nil {
			e.logger.Warn("清除同步缓存失败", "case_id", c.ID, "error", delErr)
		}
		return docs
	}

	byObjectID := make(map[string]*casemark.VaultObject, len(objects))
	for _, obj := range objects {
		byObjectID[obj.ObjectID] = obj
	}

	for _, d := range unsettled {
		obj, ok := byObjectID[d.VaultObjectID]
		if !ok {
			continue
		}
		e.reconcile(ctx, c.ID, d, obj)
	}

	return docs
}

// shouldSync 判断是否已过去抖窗口
// 有文档处理中时用短窗口（默认 2s），否则用长窗口（默认 10s）
func (e *SyncEngine) shouldSync(ctx context.Context, caseID string, hadProcessing bool) bool {
	raw, err := e.store.Get(ctx, syncCacheKey(caseID))
	if err != nil {
		// 未命中或缓存故障都视为可以同步
		return true
	}

	var entry syncCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return true
	}

	window := e.cfg.IdleWindow.Std()
	if hadProcessing {
		window = e.cfg.ActiveWindow.Std()
	}

	elapsed := e.now().UnixMilli() - entry.LastSync
	return elapsed > window.Milliseconds()
}

// recordSync 写入本次同步的去抖记录
func (e *SyncEngine) recordSync(ctx context.Context, caseID string, hadProcessing bool) {
	entry := syncCacheEntry{
		LastSync:      e.now().UnixMilli(),
		HadProcessing: hadProcessing,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := e.store.Set(ctx, syncCacheKey(caseID), raw, e.cfg.EntryTTL.Std()); err != nil {
		e.logger.Warn("写入同步缓存失败", "case_id", caseID, "error", err)
	}
}

// reconcile 把单个远程对象的观测结果合并进本地记录
// 元数据回填独立于状态推进：即使状态不变，页数/大小也允许补齐
func (e *SyncEngine) reconcile(ctx context.Context, caseID string, d *document.DocumentRecord, obj *casemark.VaultObject) {
	if (d.PageCount == 0 && obj.PageCount > 0) || (d.SizeBytes == 0 && obj.SizeBytes > 0) {
		if err := e.docRepo.UpdateMetadata(d.ID, obj.PageCount, obj.SizeBytes); err != nil {
			e.logger.Warn("回填文档元数据失败", "document_id", d.ID, "error", err)
		} else {
			if d.PageCount == 0 {
				d.PageCount = obj.PageCount
			}
			if d.SizeBytes == 0 {
				d.SizeBytes = obj.SizeBytes
			}
		}
	}

	remote := casemark.MapIngestionStatus(obj.IngestionStatus)
	if remote == "" || !document.ShouldAdvance(d.Status, remote) {
		return
	}

	// CAS 写入：另一轮同步或用户操作先推进了状态时放弃本次写入
	updated, err := e.docRepo.UpdateStatusIf(d.ID, d.Status, remote)
	if err != nil {
		e.logger.Warn("更新文档状态失败", "document_id", d.ID, "error", err)
		return
	}
	if !updated {
		return
	}

	e.logger.Info("文档状态推进",
		"case_id", caseID,
		"document_id", d.ID,
		"from", string(d.Status),
		"to", string(remote))

	d.Status = remote
	d.UpdatedAt = e.now().Unix()

	if e.hub != nil {
		e.hub.NotifyStatusChange(caseID, d.ID, string(remote))
	}

	// 首次进入 completed 时触发案件分析（尾部去抖）
	if remote == document.StatusCompleted && e.trigger != nil {
		e.trigger.Notify(caseID)
	}
}

// Invalidate 清除案件的同步去抖记录
// 新上传登记成功后调用，避免下一次状态读取被陈旧窗口饿死
func (e *SyncEngine) Invalidate(ctx context.Context, caseID string) {
	if err := e.store.Delete(ctx, syncCacheKey(caseID)); err != nil {
		e.logger.Warn("清除同步缓存失败", "case_id", caseID, "error", err)
	}
}
