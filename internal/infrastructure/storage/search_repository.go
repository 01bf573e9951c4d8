package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainSearch "github.com/CaseMark/discovery-desktop/internal/domain/search"
)

// 确保 SearchRepositoryImpl 实现了 search.Repository 接口
var _ domainSearch.Repository = (*SearchRepositoryImpl)(nil)

// SearchRepositoryImpl 检索历史仓库实现
type SearchRepositoryImpl struct {
	db *sql.DB
}

// NewSearchRepository 创建检索历史仓库实例
func NewSearchRepository(db *sql.DB) domainSearch.Repository {
	return &SearchRepositoryImpl{db: db}
}

// Save 保存检索记录，ID 为空时自动生成
func (r *SearchRepositoryImpl) Save(rec *domainSearch.SearchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO searches (
			id, case_id, query, result_count, prefilter_count,
			threshold, response_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(
		query,
		rec.ID,
		rec.CaseID,
		rec.Query,
		rec.ResultCount,
		rec.PrefilterCount,
		rec.Threshold,
		rec.ResponseJSON,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save search record: %w", err)
	}
	return nil
}

// Get 获取检索记录
func (r *SearchRepositoryImpl) Get(id string) (*domainSearch.SearchRecord, error) {
	query := `
		SELECT id, case_id, query, result_count, prefilter_count,
		       threshold, response_json, created_at
		FROM searches WHERE id = ?`

	var rec domainSearch.SearchRecord
	err := r.db.QueryRow(query, id).Scan(
		&rec.ID,
		&rec.CaseID,
		&rec.Query,
		&rec.ResultCount,
		&rec.PrefilterCount,
		&rec.Threshold,
		&rec.ResponseJSON,
		&rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domainSearch.ErrSearchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get search record: %w", err)
	}
	return &rec, nil
}

// ListByCase 列出案件的检索历史，最新的在前
// 列表视图不需要缓存载荷，response_json 不带出
func (r *SearchRepositoryImpl) ListByCase(caseID string) ([]*domainSearch.SearchRecord, error) {
	query := `
		SELECT id, case_id, query, result_count, prefilter_count, threshold, created_at
		FROM searches WHERE case_id = ? ORDER BY created_at DESC`

	rows, err := r.db.Query(query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list search records: %w", err)
	}
	defer rows.Close()

	var results []*domainSearch.SearchRecord
	for rows.Next() {
		var rec domainSearch.SearchRecord
		err := rows.Scan(
			&rec.ID,
			&rec.CaseID,
			&rec.Query,
			&rec.ResultCount,
			&rec.PrefilterCount,
			&rec.Threshold,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search record: %w", err)
		}
		results = append(results, &rec)
	}
	return results, rows.Err()
}

// UpdateCachedResponse 阈值调整持久化
func (r *SearchRepositoryImpl) UpdateCachedResponse(id string, threshold, resultCount, prefilterCount int, responseJSON string) error {
	query := `
		UPDATE searches SET threshold = ?, result_count = ?, prefilter_count = ?, response_json = ?
		WHERE id = ?`

	result, err := r.db.Exec(query, threshold, resultCount, prefilterCount, responseJSON, id)
	if err != nil {
		return fmt.Errorf("failed to update search record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domainSearch.ErrSearchNotFound
	}
	return nil
}

// DeleteByCase 删除案件的检索历史
func (r *SearchRepositoryImpl) DeleteByCase(caseID string) error {
	_, err := r.db.Exec(`DELETE FROM searches WHERE case_id = ?`, caseID)
	if err != nil {
		return fmt.Errorf("failed to delete search records: %w", err)
	}
	return nil
}
