package search

import "errors"

// SearchRecord 检索历史记录
// 每次检索执行（除非显式跳过历史）都会写入一条，response 字段缓存完整计算结果
type SearchRecord struct {
	ID             string // 检索 ID（UUID）
	CaseID         string // 所属案件 ID
	Query          string // 查询文本
	ResultCount    int    // 过滤后结果数
	PrefilterCount int    // 过滤前结果数
	Threshold      int    // 应用的相关度阈值（0-100）
	ResponseJSON   string // 序列化的完整 SearchResponse
	CreatedAt      int64  // 创建时间（Unix 秒）
}

// Chunk 检索结果片段
type Chunk struct {
	Text          string  `json:"text"`
	DocumentID    string  `json:"document_id"`
	Filename      string  `json:"filename"`
	PageNumber    int     `json:"page_number,omitempty"`
	VectorScore   float64 `json:"vector_score"`
	KeywordScore  float64 `json:"keyword_score"`
	CombinedScore float64 `json:"combined_score"`
	Summary       string  `json:"summary,omitempty"`
}

// Source 去重后的来源文档
type Source struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// Response 缓存的检索响应载荷
// 按检索 ID 原样回放，不做任何重新计算
type Response struct {
	Query          string    `json:"query"`
	Chunks         []*Chunk  `json:"chunks"`
	Sources        []*Source `json:"sources"`
	Answer         string    `json:"answer,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	PrefilterCount int       `json:"prefilter_count"`
	Threshold      int       `json:"threshold"`
}

// Repository 检索历史仓库接口
type Repository interface {
	Save(rec *SearchRecord) error
	Get(id string) (*SearchRecord, error)
	ListByCase(caseID string) ([]*SearchRecord, error)

	// UpdateCachedResponse 阈值调整持久化：就地更新阈值与缓存载荷
	// 其余字段自写入后不可变
	UpdateCachedResponse(id string, threshold, resultCount, prefilterCount int, responseJSON string) error

	DeleteByCase(caseID string) error
}

// 检索相关错误
var (
	// ErrSearchNotFound 检索记录不存在
	ErrSearchNotFound = errors.New("search not found")
	// ErrQueryRequired 查询文本必填
	ErrQueryRequired = errors.New("search query is required")
	// ErrInvalidThreshold 阈值超出 0-100 范围
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 100")
)
