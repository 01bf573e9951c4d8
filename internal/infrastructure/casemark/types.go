package casemark

// StorageTarget 预签名存储目标
// 文件内容直接 PUT 到 UploadURL，不经过本服务中转
type StorageTarget struct {
	ObjectID  string `json:"object_id"`
	UploadURL string `json:"upload_url"`
	ExpiresAt int64  `json:"expires_at"`
}

// VaultObject vault 中对象的远程视图
// 摄取状态以远程为准，页数和大小在 OCR 过程中逐步补齐
type VaultObject struct {
	ObjectID        string `json:"object_id"`
	IngestionStatus string `json:"ingestion_status"`
	PageCount       int    `json:"page_count,omitempty"`
	SizeBytes       int64  `json:"size_bytes,omitempty"`
}

// IngestionJob 摄取任务
type IngestionJob struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ObjectText 提取出的文档文本
type ObjectText struct {
	Text       string `json:"text"`
	TextLength int    `json:"text_length"`
	PageCount  int    `json:"page_count"`
}

// SearchChunk 远程检索返回的片段
type SearchChunk struct {
	Text          string  `json:"text"`
	ObjectID      string  `json:"object_id"`
	PageNumber    int     `json:"page_number,omitempty"`
	VectorScore   float64 `json:"vector_score"`
	KeywordScore  float64 `json:"keyword_score"`
	CombinedScore float64 `json:"combined_score"`
	Summary       string  `json:"summary,omitempty"`
}

// SearchResult 远程检索响应
type SearchResult struct {
	Chunks    []*SearchChunk `json:"chunks"`
	SourceIDs []string       `json:"sources"`
	Narrative string         `json:"narrative,omitempty"`
}

// 远程摄取状态常量
// 映射关系见 MapIngestionStatus
const (
	RemoteStatusQueued     = "queued"
	RemoteStatusProcessing = "processing"
	RemoteStatusComplete   = "complete"
	RemoteStatusFailed     = "failed"
)
