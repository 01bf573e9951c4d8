package document

import "errors"

// 文档相关错误
var (
	// ErrDocumentNotFound 文档不存在
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmptyBatch 批量请求为空
	ErrEmptyBatch = errors.New("batch contains no files")
	// ErrBatchTooLarge 批量请求超过上限
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
	// ErrUnsupportedFileType 文件类型不在允许列表内
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrNotRetryable 文档当前状态不允许重试
	ErrNotRetryable = errors.New("document is not in a retryable state")
	// ErrStaleStatus 并发同步导致的状态写入冲突（CAS 失败）
	ErrStaleStatus = errors.New("document status changed concurrently")
)
