package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	domainAnalysis "github.com/CaseMark/discovery-desktop/internal/domain/analysis"
)

// 确保 AnalysisRepositoryImpl 实现了 analysis.Repository 接口
var _ domainAnalysis.Repository = (*AnalysisRepositoryImpl)(nil)

// AnalysisRepositoryImpl 案件分析仓库实现
type AnalysisRepositoryImpl struct {
	db *sql.DB
}

// NewAnalysisRepository 创建案件分析仓库实例
func NewAnalysisRepository(db *sql.DB) domainAnalysis.Repository {
	return &AnalysisRepositoryImpl{db: db}
}

// Save 保存分析结果，同案件就地覆盖
func (r *AnalysisRepositoryImpl) Save(a *domainAnalysis.CaseAnalysis) error {
	if a.GeneratedAt == 0 {
		a.GeneratedAt = time.Now().Unix()
	}

	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO case_analyses (case_id, tags, summary, last_error, generated_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query, a.CaseID, string(tags), a.Summary, a.LastError, a.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to save case analysis: %w", err)
	}
	return nil
}

// Get 获取分析结果，不存在时返回 nil
func (r *AnalysisRepositoryImpl) Get(caseID string) (*domainAnalysis.CaseAnalysis, error) {
	query := `SELECT case_id, tags, summary, last_error, generated_at FROM case_analyses WHERE case_id = ?`

	var a domainAnalysis.CaseAnalysis
	var tags string
	err := r.db.QueryRow(query, caseID).Scan(&a.CaseID, &tags, &a.Summary, &a.LastError, &a.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case analysis: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	return &a, nil
}

// DeleteByCase 删除案件的分析结果
func (r *AnalysisRepositoryImpl) DeleteByCase(caseID string) error {
	_, err := r.db.Exec(`DELETE FROM case_analyses WHERE case_id = ?`, caseID)
	if err != nil {
		return fmt.Errorf("failed to delete case analysis: %w", err)
	}
	return nil
}
