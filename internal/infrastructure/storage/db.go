package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
)

// GetDBPath 获取数据库路径
// 默认 <数据目录>/discovery.db，可由配置覆盖
func GetDBPath(cfg *config.DatabaseConfig) string {
	if cfg != nil && cfg.Path != "" {
		return cfg.Path
	}
	return filepath.Join(config.GetDataDir(), "discovery.db")
}

// OpenDB 打开数据库连接并初始化表结构
func OpenDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dbPath := GetDBPath(cfg)

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL 模式，同步回合和请求处理会并发读写
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// initSchema 初始化表结构
func initSchema(db *sql.DB) error {
	createCasesSQL := `
	CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		vault_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createCasesSQL); err != nil {
		return fmt.Errorf("failed to create cases table: %w", err)
	}

	createDocumentsSQL := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		vault_object_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		page_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		uploaded_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE
	);`

	if _, err := db.Exec(createDocumentsSQL); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	createDocumentIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_documents_case ON documents(case_id);
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(case_id, status);`

	if _, err := db.Exec(createDocumentIndexSQL); err != nil {
		return fmt.Errorf("failed to create documents indexes: %w", err)
	}

	createSearchesSQL := `
	CREATE TABLE IF NOT EXISTS searches (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		query TEXT NOT NULL,
		result_count INTEGER NOT NULL,
		prefilter_count INTEGER NOT NULL,
		threshold INTEGER NOT NULL,
		response_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE
	);`

	if _, err := db.Exec(createSearchesSQL); err != nil {
		return fmt.Errorf("failed to create searches table: %w", err)
	}

	createSearchIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_searches_case ON searches(case_id, created_at);`

	if _, err := db.Exec(createSearchIndexSQL); err != nil {
		return fmt.Errorf("failed to create searches index: %w", err)
	}

	createAnalysesSQL := `
	CREATE TABLE IF NOT EXISTS case_analyses (
		case_id TEXT PRIMARY KEY,
		tags TEXT NOT NULL,
		summary TEXT NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		generated_at INTEGER NOT NULL,
		FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE
	);`

	if _, err := db.Exec(createAnalysesSQL); err != nil {
		return fmt.Errorf("failed to create case_analyses table: %w", err)
	}

	return nil
}
