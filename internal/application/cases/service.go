// Package cases 案件管理应用服务
// 每个案件在远程服务中对应一个 vault，创建与删除需要两边联动
package cases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CaseMark/discovery-desktop/internal/application/ingest"
	domainCases "github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
)

// Service 案件服务
type Service struct {
	caseRepo domainCases.Repository
	remote   ingest.RemoteGateway
	logger   *slog.Logger

	now func() time.Time
}

// NewService 创建案件服务
func NewService(caseRepo domainCases.Repository, remote ingest.RemoteGateway) *Service {
	return &Service{
		caseRepo: caseRepo,
		remote:   remote,
		logger:   log.NewModuleLogger("cases", "service"),
		now:      time.Now,
	}
}

// Create 创建案件
// 先在远程开好 vault 再落库，避免出现没有存储后端的案件
func (s *Service) Create(ctx context.Context, name string) (*domainCases.Case, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainCases.ErrCaseNameRequired
	}

	vaultID, err := s.remote.CreateVault(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("创建远程 vault 失败: %w", err)
	}

	now := s.now().Unix()
	c := &domainCases.Case{
		ID:        uuid.New().String(),
		Name:      name,
		VaultID:   vaultID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.caseRepo.Save(c); err != nil {
		// 落库失败时回收远程 vault，失败只记日志
		if delErr := s.remote.DeleteVault(ctx, vaultID); delErr != nil {
			s.logger.Warn("回收远程 vault 失败", "vault_id", vaultID, "error", delErr)
		}
		return nil, fmt.Errorf("保存案件失败: %w", err)
	}

	s.logger.Info("案件已创建", "case_id", c.ID, "vault_id", vaultID)
	return c, nil
}

// Get 获取案件
func (s *Service) Get(ctx context.Context, id string) (*domainCases.Case, error) {
	return s.caseRepo.Get(id)
}

// List 列出全部案件
func (s *Service) List(ctx context.Context) ([]*domainCases.Case, error) {
	return s.caseRepo.List()
}

// Delete 删除案件
// 远程 vault 连同其中对象一并删除；本地文档、检索历史、分析结果靠外键级联清理
// 远程 vault 已不存在时容忍继续，保证本地清理总能完成
func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.caseRepo.Get(id)
	if err != nil {
		return err
	}

	if err := s.remote.DeleteVault(ctx, c.VaultID); err != nil {
		if apiErr, ok := casemark.AsAPIError(err); !ok || !apiErr.IsNotFound() {
			return fmt.Errorf("删除远程 vault 失败: %w", err)
		}
	}

	if err := s.caseRepo.Delete(id); err != nil {
		return err
	}

	s.logger.Info("案件已删除", "case_id", id)
	return nil
}
