package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainCases "github.com/CaseMark/discovery-desktop/internal/domain/cases"
)

// 确保 CaseRepositoryImpl 实现了 cases.Repository 接口
var _ domainCases.Repository = (*CaseRepositoryImpl)(nil)

// CaseRepositoryImpl 案件仓库实现
type CaseRepositoryImpl struct {
	db *sql.DB
}

// NewCaseRepository 创建案件仓库实例
func NewCaseRepository(db *sql.DB) domainCases.Repository {
	return &CaseRepositoryImpl{db: db}
}

// Save 保存案件，ID 为空时自动生成
func (r *CaseRepositoryImpl) Save(c *domainCases.Case) error {
	now := time.Now().Unix()
	if c.ID == "" {
		c.ID = uuid.New().String()
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := `
		INSERT OR REPLACE INTO cases (id, name, vault_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query, c.ID, c.Name, c.VaultID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save case: %w", err)
	}
	return nil
}

// Get 获取案件
func (r *CaseRepositoryImpl) Get(id string) (*domainCases.Case, error) {
	query := `SELECT id, name, vault_id, created_at, updated_at FROM cases WHERE id = ?`

	var c domainCases.Case
	err := r.db.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.VaultID, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domainCases.ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return &c, nil
}

// List 列出所有案件，按创建时间倒序
func (r *CaseRepositoryImpl) List() ([]*domainCases.Case, error) {
	query := `SELECT id, name, vault_id, created_at, updated_at FROM cases ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var results []*domainCases.Case
	for rows.Next() {
		var c domainCases.Case
		if err := rows.Scan(&c.ID, &c.Name, &c.VaultID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

// Delete 删除案件，文档/检索/分析记录级联删除
func (r *CaseRepositoryImpl) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domainCases.ErrCaseNotFound
	}
	return nil
}
