// Package search 检索应用服务
// 每次执行的完整结果序列化后缓存，回看历史检索零重算；
// 调整阈值则发起一次绕过历史的新执行，而不是在本地重新过滤
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	domainSearch "github.com/CaseMark/discovery-desktop/internal/domain/search"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/llm"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
)

// Searcher 远程混合检索能力
// 由 casemark.Client 实现
type Searcher interface {
	Search(ctx context.Context, vaultID, query string, topK int) (*casemark.SearchResult, error)
}

var _ Searcher = (*casemark.Client)(nil)

// Completer 聊天补全能力，用于生成整体摘要
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var _ Completer = (*llm.Client)(nil)

// defaultTopK 远程检索取回的候选数
const defaultTopK = 20

// ExecuteOptions 检索执行选项
type ExecuteOptions struct {
	// Threshold 相关度阈值（0-100），与 0-1 的综合得分比较前除以 100
	Threshold int
	// SkipHistory 为 true 时不写入检索历史
	SkipHistory bool
	// WithSummary 为 true 时调用 LLM 生成整体摘要
	WithSummary bool
}

// ExecuteResult 检索执行结果
type ExecuteResult struct {
	SearchID string                 `json:"search_id,omitempty"`
	Response *domainSearch.Response `json:"response"`
}

// Service 检索服务
type Service struct {
	searchRepo domainSearch.Repository
	caseRepo   cases.Repository
	docRepo    document.Repository
	searcher   Searcher
	completer  Completer
	cfg        *config.AnalysisConfig
	logger     *slog.Logger

	now func() time.Time
}

// NewService 创建检索服务
func NewService(
	searchRepo domainSearch.Repository,
	caseRepo cases.Repository,
	docRepo document.Repository,
	searcher Searcher,
	completer Completer,
	cfg *config.AnalysisConfig,
) *Service {
	return &Service{
		searchRepo: searchRepo,
		caseRepo:   caseRepo,
		docRepo:    docRepo,
		searcher:   searcher,
		completer:  completer,
		cfg:        cfg,
		logger:     log.NewModuleLogger("search", "service"),
		now:        time.Now,
	}
}

// Execute 执行一次检索
// 除非 SkipHistory，完整响应序列化后写入检索历史
func (s *Service) Execute(ctx context.Context, caseID, query string, opts ExecuteOptions) (*ExecuteResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domainSearch.ErrQueryRequired
	}
	if opts.Threshold < 0 || opts.Threshold > 100 {
		return nil, domainSearch.ErrInvalidThreshold
	}

	c, err := s.caseRepo.Get(caseID)
	if err != nil {
		return nil, err
	}

	raw, err := s.searcher.Search(ctx, c.VaultID, query, defaultTopK)
	if err != nil {
		return nil, fmt.Errorf("远程检索失败: %w", err)
	}

	resp := s.buildResponse(ctx, caseID, query, raw, opts)

	result := &ExecuteResult{Response: resp}
	if !opts.SkipHistory {
		rec := &domainSearch.SearchRecord{
			ID:             uuid.New().String(),
			CaseID:         caseID,
			Query:          query,
			ResultCount:    len(resp.Chunks),
			PrefilterCount: resp.PrefilterCount,
			Threshold:      opts.Threshold,
			CreatedAt:      s.now().Unix(),
		}
		payload, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("序列化检索响应失败: %w", err)
		}
		rec.ResponseJSON = string(payload)

		if err := s.searchRepo.Save(rec); err != nil {
			return nil, fmt.Errorf("保存检索历史失败: %w", err)
		}
		result.SearchID = rec.ID
	}

	return result, nil
}

// buildResponse 过滤、去重来源并按需生成整体摘要
func (s *Service) buildResponse(ctx context.Context, caseID, query string, raw *casemark.SearchResult, opts ExecuteOptions) *domainSearch.Response {
	cutoff := float64(opts.Threshold) / 100

	byObjectID := s.documentIndex(caseID)

	chunks := make([]*domainSearch.Chunk, 0, len(raw.Chunks))
	for _, rc := range raw.Chunks {
		if rc.CombinedScore < cutoff {
			continue
		}
		chunk := &domainSearch.Chunk{
			Text:          rc.Text,
			DocumentID:    rc.ObjectID,
			PageNumber:    rc.PageNumber,
			VectorScore:   rc.VectorScore,
			KeywordScore:  rc.KeywordScore,
			CombinedScore: rc.CombinedScore,
			Summary:       rc.Summary,
		}
		// 远程片段只带 vault 对象引用，翻回本地文档 ID 与文件名
		if doc, ok := byObjectID[rc.ObjectID]; ok {
			chunk.DocumentID = doc.ID
			chunk.Filename = doc.Filename
		}
		chunks = append(chunks, chunk)
	}

	resp := &domainSearch.Response{
		Query:          query,
		Chunks:         chunks,
		Sources:        dedupSources(chunks),
		Answer:         raw.Narrative,
		PrefilterCount: len(raw.Chunks),
		Threshold:      opts.Threshold,
	}

	if opts.WithSummary && len(chunks) > 0 {
		if summary, err := s.summarize(ctx, query, chunks); err != nil {
			// 摘要失败不影响检索结果本身
			s.logger.Warn("整体摘要生成失败", "case_id", caseID, "error", err)
		} else {
			resp.Summary = summary
		}
	}

	return resp
}

// documentIndex vault 对象引用到本地文档的映射
// 加载失败时返回空映射，片段退化为只带对象引用
func (s *Service) documentIndex(caseID string) map[string]*document.DocumentRecord {
	index := make(map[string]*document.DocumentRecord)
	docs, err := s.docRepo.ListByCase(caseID)
	if err != nil {
		s.logger.Warn("加载案件文档失败，片段不带文件名", "case_id", caseID, "error", err)
		return index
	}
	for _, d := range docs {
		index[d.VaultObjectID] = d
	}
	return index
}

// dedupSources 按文档去重来源，保留片段出现顺序
func dedupSources(chunks []*domainSearch.Chunk) []*domainSearch.Source {
	seen := make(map[string]*domainSearch.Source)
	sources := make([]*domainSearch.Source, 0)
	for _, c := range chunks {
		if src, ok := seen[c.DocumentID]; ok {
			src.ChunkCount++
			continue
		}
		src := &domainSearch.Source{
			DocumentID: c.DocumentID,
			Filename:   c.Filename,
			ChunkCount: 1,
		}
		seen[c.DocumentID] = src
		sources = append(sources, src)
	}
	return sources
}

// summarize 在 token 预算内对命中片段生成整体摘要
func (s *Service) summarize(ctx context.Context, query string, chunks []*domainSearch.Chunk) (string, error) {
	var sb strings.Builder
	for i, c := range chunks {
		sb.WriteString(fmt.Sprintf("片段 %d（%s）：%s\n", i+1, c.Filename, c.Text))
	}
	corpus := sb.String()

	if estimator, err := llm.GetTokenEstimator(); err == nil {
		corpus = estimator.TruncateToTokens(corpus, s.cfg.MaxPromptTokens)
	}

	prompt := fmt.Sprintf(`以下是针对查询"%s"检索到的文档片段，请用 2-3 句话总结这些片段回答了什么。

%s

直接返回摘要文本，不要包含其他内容。`, query, corpus)

	return s.completer.Complete(ctx, prompt)
}

// Get 按 ID 回放缓存的检索结果，不做任何重新计算
func (s *Service) Get(ctx context.Context, searchID string) (*domainSearch.Response, error) {
	rec, err := s.searchRepo.Get(searchID)
	if err != nil {
		return nil, err
	}

	var resp domainSearch.Response
	if err := json.Unmarshal([]byte(rec.ResponseJSON), &resp); err != nil {
		return nil, fmt.Errorf("解析缓存的检索响应失败: %w", err)
	}
	return &resp, nil
}

// ListByCase 列出案件的检索历史（不含缓存载荷）
func (s *Service) ListByCase(ctx context.Context, caseID string) ([]*domainSearch.SearchRecord, error) {
	if _, err := s.caseRepo.Get(caseID); err != nil {
		return nil, err
	}
	return s.searchRepo.ListByCase(caseID)
}

// Rerun 以新阈值重新执行已有检索
// 缓存载荷里低于原阈值的片段从未取回，本地重过滤无意义，
// 必须绕过历史发起新执行；persist 为 true 时把新阈值与载荷写回原记录
func (s *Service) Rerun(ctx context.Context, searchID string, threshold int, persist bool) (*domainSearch.Response, error) {
	if threshold < 0 || threshold > 100 {
		return nil, domainSearch.ErrInvalidThreshold
	}

	rec, err := s.searchRepo.Get(searchID)
	if err != nil {
		return nil, err
	}

	result, err := s.Execute(ctx, rec.CaseID, rec.Query, ExecuteOptions{
		Threshold:   threshold,
		SkipHistory: true,
	})
	if err != nil {
		return nil, err
	}

	if persist {
		payload, err := json.Marshal(result.Response)
		if err != nil {
			return nil, fmt.Errorf("序列化检索响应失败: %w", err)
		}
		if err := s.searchRepo.UpdateCachedResponse(
			searchID,
			threshold,
			len(result.Response.Chunks),
			result.Response.PrefilterCount,
			string(payload),
		); err != nil {
			return nil, fmt.Errorf("更新检索记录失败: %w", err)
		}
	}

	return result.Response, nil
}
