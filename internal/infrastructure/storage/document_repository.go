package storage

import (
	"database/sql"
	"fmt"
	"time"

	domainDoc "github.com/CaseMark/discovery-desktop/internal/domain/document"
)

// 确保 DocumentRepositoryImpl 实现了 document.Repository 接口
var _ domainDoc.Repository = (*DocumentRepositoryImpl)(nil)

// DocumentRepositoryImpl 文档仓库实现
type DocumentRepositoryImpl struct {
	db *sql.DB
}

// NewDocumentRepository 创建文档仓库实例
func NewDocumentRepository(db *sql.DB) domainDoc.Repository {
	return &DocumentRepositoryImpl{db: db}
}

// Save 保存文档记录
func (r *DocumentRepositoryImpl) Save(doc *domainDoc.DocumentRecord) error {
	if doc.UploadedAt == 0 {
		doc.UploadedAt = time.Now().Unix()
	}
	doc.UpdatedAt = time.Now().Unix()

	query := `
		INSERT OR REPLACE INTO documents (
			id, case_id, vault_object_id, filename, content_type,
			size_bytes, page_count, status, uploaded_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(
		query,
		doc.ID,
		doc.CaseID,
		doc.VaultObjectID,
		doc.Filename,
		doc.ContentType,
		doc.SizeBytes,
		doc.PageCount,
		string(doc.Status),
		doc.UploadedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// Get 获取文档
func (r *DocumentRepositoryImpl) Get(id string) (*domainDoc.DocumentRecord, error) {
	query := selectDocumentSQL + ` WHERE id = ?`

	row := r.db.QueryRow(query, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, domainDoc.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByCase 列出案件下的全部文档，按登记时间排序
func (r *DocumentRepositoryImpl) ListByCase(caseID string) ([]*domainDoc.DocumentRecord, error) {
	query := selectDocumentSQL + ` WHERE case_id = ? ORDER BY uploaded_at ASC, id ASC`

	rows, err := r.db.Query(query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var results []*domainDoc.DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		results = append(results, doc)
	}
	return results, rows.Err()
}

// UpdateStatus 无条件更新状态（用户显式操作走这里）
func (r *DocumentRepositoryImpl) UpdateStatus(id string, status domainDoc.Status) error {
	query := `UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, string(status), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domainDoc.ErrDocumentNotFound
	}
	return nil
}

// UpdateStatusIf 带 CAS 保护的状态更新
// WHERE 子句同时比较当前状态，两个交叠的同步回合中只有一个能写成功
func (r *DocumentRepositoryImpl) UpdateStatusIf(id string, expected, next domainDoc.Status) (bool, error) {
	query := `UPDATE documents SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := r.db.Exec(query, string(next), time.Now().Unix(), id, string(expected))
	if err != nil {
		return false, fmt.Errorf("failed to update document status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateMetadata 回填页数/大小，只在本地值缺失时写入
func (r *DocumentRepositoryImpl) UpdateMetadata(id string, pageCount int, sizeBytes int64) error {
	query := `
		UPDATE documents SET
			page_count = CASE WHEN page_count = 0 THEN ? ELSE page_count END,
			size_bytes = CASE WHEN size_bytes = 0 THEN ? ELSE size_bytes END,
			updated_at = ?
		WHERE id = ?`

	_, err := r.db.Exec(query, pageCount, sizeBytes, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update document metadata: %w", err)
	}
	return nil
}

// Delete 删除文档
func (r *DocumentRepositoryImpl) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domainDoc.ErrDocumentNotFound
	}
	return nil
}

// DeleteByCase 删除案件下的全部文档
func (r *DocumentRepositoryImpl) DeleteByCase(caseID string) error {
	_, err := r.db.Exec(`DELETE FROM documents WHERE case_id = ?`, caseID)
	if err != nil {
		return fmt.Errorf("failed to delete documents by case: %w", err)
	}
	return nil
}

const selectDocumentSQL = `
	SELECT id, case_id, vault_object_id, filename, content_type,
	       size_bytes, page_count, status, uploaded_at, updated_at
	FROM documents`

// scanner 兼容 *sql.Row 和 *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanDocument 扫描一行文档记录
func scanDocument(s scanner) (*domainDoc.DocumentRecord, error) {
	var doc domainDoc.DocumentRecord
	var status string

	err := s.Scan(
		&doc.ID,
		&doc.CaseID,
		&doc.VaultObjectID,
		&doc.Filename,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.PageCount,
		&status,
		&doc.UploadedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Status = domainDoc.Status(status)
	return &doc, nil
}
