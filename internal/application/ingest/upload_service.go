package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
)

// FileSpec 待登记的文件描述
type FileSpec struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// RegisteredDocument 登记成功的文档
// UploadURL 是预签名直传地址，客户端拿到后直接向存储传输
type RegisteredDocument struct {
	DocumentID string `json:"document_id"`
	ObjectID   string `json:"object_id"`
	UploadURL  string `json:"upload_url"`
	Filename   string `json:"filename"`
}

// ItemResult 批量操作的单项结果
type ItemResult struct {
	DocumentID string `json:"document_id,omitempty"`
	Filename   string `json:"filename,omitempty"`
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchSummary 批量操作的部分成功汇总
// 单项失败不会使整个批次失败
type BatchSummary struct {
	Total   int          `json:"total"`
	Success int          `json:"success"`
	Failed  int          `json:"failed"`
	Items   []ItemResult `json:"items"`
}

// RegisterResult 批量登记结果
type RegisterResult struct {
	Summary   BatchSummary          `json:"summary"`
	Documents []*RegisteredDocument `json:"documents"`
}

// UploadService 文档登记与确认服务
// 覆盖服务端的摄取生命周期：登记、确认触发、重试、删除
type UploadService struct {
	docRepo    document.Repository
	caseRepo   cases.Repository
	remote     RemoteGateway
	syncEngine *SyncEngine
	cfg        *config.UploadConfig
	syncCfg    *config.SyncConfig
	logger     *slog.Logger

	now func() time.Time
}

// NewUploadService 创建上传服务
func NewUploadService(
	docRepo document.Repository,
	caseRepo cases.Repository,
	remote RemoteGateway,
	syncEngine *SyncEngine,
	cfg *config.UploadConfig,
	syncCfg *config.SyncConfig,
) *UploadService {
	return &UploadService{
		docRepo:    docRepo,
		caseRepo:   caseRepo,
		remote:     remote,
		syncEngine: syncEngine,
		cfg:        cfg,
		syncCfg:    syncCfg,
		logger:     log.NewModuleLogger("ingest", "upload_service"),
		now:        time.Now,
	}
}

// validateFileType 检查文件扩展名是否在允许列表内
func (s *UploadService) validateFileType(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range s.cfg.AllowedTypes {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", document.ErrUnsupportedFileType, filename)
}

// Register 登记单个文件
// 向远程申请存储目标并落库一条 uploading 记录，成功后清除同步去抖缓存
func (s *UploadService) Register(ctx context.Context, caseID string, file FileSpec) (*RegisteredDocument, error) {
	if err := s.validateFileType(file.Filename); err != nil {
		return nil, err
	}

	c, err := s.caseRepo.Get(caseID)
	if err != nil {
		return nil, err
	}

	reg, err := s.registerOne(ctx, c, file)
	if err != nil {
		return nil, err
	}

	s.syncEngine.Invalidate(ctx, caseID)
	return reg, nil
}

// RegisterBatch 批量登记文件
// 单项校验或远程失败只影响该项，返回部分成功汇总
func (s *UploadService) RegisterBatch(ctx context.Context, caseID string, files []FileSpec) (*RegisterResult, error) {
	if len(files) == 0 {
		return nil, document.ErrEmptyBatch
	}
	if len(files) > s.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", document.ErrBatchTooLarge, len(files), s.cfg.MaxBatchSize)
	}

	c, err := s.caseRepo.Get(caseID)
	if err != nil {
		return nil, err
	}

	result := &RegisterResult{
		Summary: BatchSummary{Total: len(files)},
	}

	for _, file := range files {
		if err := s.validateFileType(file.Filename); err != nil {
			result.Summary.Failed++
			result.Summary.Items = append(result.Summary.Items, ItemResult{
				Filename: file.Filename,
				Error:    err.Error(),
			})
			continue
		}

		reg, err := s.registerOne(ctx, c, file)
		if err != nil {
			s.logger.Warn("文件登记失败", "case_id", caseID, "filename", file.Filename, "error", err)
			result.Summary.Failed++
			result.Summary.Items = append(result.Summary.Items, ItemResult{
				Filename: file.Filename,
				Error:    err.Error(),
			})
			continue
		}

		result.Summary.Success++
		result.Summary.Items = append(result.Summary.Items, ItemResult{
			DocumentID: reg.DocumentID,
			Filename:   file.Filename,
			Success:    true,
		})
		result.Documents = append(result.Documents, reg)
	}

	if result.Summary.Success > 0 {
		s.syncEngine.Invalidate(ctx, caseID)
	}

	return result, nil
}

// registerOne 申请存储目标并落库
func (s *UploadService) registerOne(ctx context.Context, c *cases.Case, file FileSpec) (*RegisteredDocument, error) {
	target, err := s.remote.CreateStorageTarget(ctx, c.VaultID, file.Filename, file.ContentType)
	if err != nil {
		return nil, fmt.Errorf("申请存储目标失败: %w", err)
	}

	// 存储目标已签发，客户端随时开始直传，记录直接落在 uploading
	now := s.now().Unix()
	doc := &document.DocumentRecord{
		ID:            uuid.New().String(),
		CaseID:        c.ID,
		VaultObjectID: target.ObjectID,
		Filename:      file.Filename,
		ContentType:   file.ContentType,
		Status:        document.StatusUploading,
		UploadedAt:    now,
		UpdatedAt:     now,
	}

	if err := s.docRepo.Save(doc); err != nil {
		return nil, fmt.Errorf("保存文档记录失败: %w", err)
	}

	return &RegisteredDocument{
		DocumentID: doc.ID,
		ObjectID:   target.ObjectID,
		UploadURL:  target.UploadURL,
		Filename:   file.Filename,
	}, nil
}

// Confirm 确认一批文档已完成传输，向远程触发摄取
// 幂等：已在 processing/completed 的文档直接算成功跳过；
// 远程回应"已在处理中"同样算成功；真实失败把该文档标记为 failed，
// 只影响该项，批次整体返回部分成功汇总
func (s *UploadService) Confirm(ctx context.Context, caseID string, docIDs []string) (*BatchSummary, error) {
	if len(docIDs) == 0 {
		return nil, document.ErrEmptyBatch
	}

	c, err := s.caseRepo.Get(caseID)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{Total: len(docIDs)}

	for _, docID := range docIDs {
		item := s.confirmOne(ctx, c, docID)
		if item.Success {
			summary.Success++
		} else {
			summary.Failed++
		}
		summary.Items = append(summary.Items, item)
	}

	return summary, nil
}

func (s *UploadService) confirmOne(ctx context.Context, c *cases.Case, docID string) ItemResult {
	doc, err := s.docRepo.Get(docID)
	if err != nil {
		return ItemResult{DocumentID: docID, Error: err.Error()}
	}

	// 已提交或已完成的文档重复确认视为成功
	if doc.Status == document.StatusProcessing || doc.Status == document.StatusCompleted {
		return ItemResult{DocumentID: docID, Success: true, Skipped: true}
	}

	if _, err := s.remote.TriggerIngestion(ctx, c.VaultID, doc.VaultObjectID); err != nil {
		if apiErr, ok := casemark.AsAPIError(err); ok && apiErr.IsAlreadyInProgress() {
			// 远程已在处理，与成功触发等价
			s.markProcessing(doc)
			return ItemResult{DocumentID: docID, Success: true, Skipped: true}
		}

		s.logger.Error("触发摄取失败", "document_id", docID, "error", err)
		if updErr := s.docRepo.UpdateStatus(docID, document.StatusFailed); updErr != nil {
			s.logger.Warn("标记文档失败状态出错", "document_id", docID, "error", updErr)
		}
		return ItemResult{DocumentID: docID, Error: err.Error()}
	}

	s.markProcessing(doc)
	return ItemResult{DocumentID: docID, Success: true}
}

// markProcessing 把文档推进到 processing
// CAS 未命中说明状态已被其他路径推进，同样视为成功
func (s *UploadService) markProcessing(doc *document.DocumentRecord) {
	if !document.ShouldAdvance(doc.Status, document.StatusProcessing) {
		return
	}
	if _, err := s.docRepo.UpdateStatusIf(doc.ID, doc.Status, document.StatusProcessing); err != nil {
		s.logger.Warn("更新文档状态失败", "document_id", doc.ID, "error", err)
	}
}

// ListDocuments 列出案件文档并顺带做一次状态同步
// 同步受去抖窗口约束，失败时静默返回本地数据
func (s *UploadService) ListDocuments(ctx context.Context, caseID string) ([]*document.DocumentRecord, error) {
	c, err := s.caseRepo.Get(caseID)
	if err != nil {
		return nil, err
	}

	docs, err := s.docRepo.ListByCase(caseID)
	if err != nil {
		return nil, err
	}

	return s.syncEngine.Sync(ctx, c, docs), nil
}

// GetDocument 获取单个文档记录
func (s *UploadService) GetDocument(ctx context.Context, docID string) (*document.DocumentRecord, error) {
	return s.docRepo.Get(docID)
}

// Retry 重试一个失败的文档
// 仅 failed 状态允许重试；成功后状态重置为 processing
func (s *UploadService) Retry(ctx context.Context, docID string) error {
	doc, err := s.docRepo.Get(docID)
	if err != nil {
		return err
	}

	if !doc.CanRetry() {
		return fmt.Errorf("%w: 当前状态 %s", document.ErrNotRetryable, doc.Status)
	}

	c, err := s.caseRepo.Get(doc.CaseID)
	if err != nil {
		return err
	}

	if _, err := s.remote.TriggerIngestion(ctx, c.VaultID, doc.VaultObjectID); err != nil {
		if apiErr, ok := casemark.AsAPIError(err); !ok || !apiErr.IsAlreadyInProgress() {
			return fmt.Errorf("重新触发摄取失败: %w", err)
		}
	}

	// 重试是用户显式操作，允许从 failed 回退到 processing
	if err := s.docRepo.UpdateStatus(docID, document.StatusProcessing); err != nil {
		return err
	}

	s.syncEngine.Invalidate(ctx, doc.CaseID)
	return nil
}

// RetryStuck 重试案件中所有卡住的文档
// 卡住指停留在 processing 超过配置的时长
func (s *UploadService) RetryStuck(ctx context.Context, caseID string) (*BatchSummary, error) {
	c, err := s.caseRepo.Get(caseID)
	if err != nil {
		return nil, err
	}

	docs, err := s.docRepo.ListByCase(caseID)
	if err != nil {
		return nil, err
	}

	now := s.now().Unix()
	cutoff := s.syncCfg.StuckCutoff.Std()

	summary := &BatchSummary{}
	for _, doc := range docs {
		if !doc.StuckSince(cutoff, now) {
			continue
		}
		summary.Total++

		if _, err := s.remote.TriggerIngestion(ctx, c.VaultID, doc.VaultObjectID); err != nil {
			if apiErr, ok := casemark.AsAPIError(err); ok && apiErr.IsAlreadyInProgress() {
				summary.Success++
				summary.Items = append(summary.Items, ItemResult{DocumentID: doc.ID, Success: true, Skipped: true})
				continue
			}
			summary.Failed++
			summary.Items = append(summary.Items, ItemResult{DocumentID: doc.ID, Error: err.Error()})
			continue
		}

		summary.Success++
		summary.Items = append(summary.Items, ItemResult{DocumentID: doc.ID, Success: true})
	}

	if summary.Success > 0 {
		s.syncEngine.Invalidate(ctx, caseID)
	}

	return summary, nil
}

// DeleteDocument 删除文档
// 先删远程对象再删本地记录；远程已不存在时容忍继续
func (s *UploadService) DeleteDocument(ctx context.Context, docID string) error {
	doc, err := s.docRepo.Get(docID)
	if err != nil {
		return err
	}

	c, err := s.caseRepo.Get(doc.CaseID)
	if err != nil {
		return err
	}

	if err := s.remote.DeleteObject(ctx, c.VaultID, doc.VaultObjectID); err != nil {
		if apiErr, ok := casemark.AsAPIError(err); !ok || !apiErr.IsNotFound() {
			return fmt.Errorf("删除远程对象失败: %w", err)
		}
	}

	return s.docRepo.Delete(docID)
}
