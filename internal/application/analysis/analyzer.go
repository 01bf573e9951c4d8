// Package analysis 案件分析应用服务
// 摄取完成的文档稳定后由去抖触发器驱动，整批只分析一次
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainAnalysis "github.com/CaseMark/discovery-desktop/internal/domain/analysis"
	"github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/llm"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
)

// TextSource 提取文本的来源
// 由 casemark.Client 实现
type TextSource interface {
	GetText(ctx context.Context, vaultID, objectID string) (*casemark.ObjectText, error)
}

var _ TextSource = (*casemark.Client)(nil)

// Completer 聊天补全能力
// 由 llm.Client 实现
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var _ Completer = (*llm.Client)(nil)

// Analyzer 案件分析器
// 汇总已完成文档的提取文本，在 token 预算内调用一次 LLM
// 生成标签与摘要，结果就地覆盖旧分析
type Analyzer struct {
	caseRepo     cases.Repository
	docRepo      document.Repository
	analysisRepo domainAnalysis.Repository
	textSource   TextSource
	completer    Completer
	cfg          *config.AnalysisConfig
	logger       *slog.Logger

	now func() time.Time
}

// NewAnalyzer 创建案件分析器
func NewAnalyzer(
	caseRepo cases.Repository,
	docRepo document.Repository,
	analysisRepo domainAnalysis.Repository,
	textSource TextSource,
	completer Completer,
	cfg *config.AnalysisConfig,
) *Analyzer {
	return &Analyzer{
		caseRepo:     caseRepo,
		docRepo:      docRepo,
		analysisRepo: analysisRepo,
		textSource:   textSource,
		completer:    completer,
		cfg:          cfg,
		logger:       log.NewModuleLogger("analysis", "analyzer"),
		now:          time.Now,
	}
}

// analysisResult LLM 返回的结构化结果
type analysisResult struct {
	Tags    []string `json:"tags"`
	Summary string   `json:"summary"`
}

// Analyze 分析一个案件
// 失败时把错误写入 LastError 并保留旧的标签/摘要，下次完成事件会再次调度
func (a *Analyzer) Analyze(ctx context.Context, caseID string) error {
	c, err := a.caseRepo.Get(caseID)
	if err != nil {
		return err
	}

	docs, err := a.docRepo.ListByCase(caseID)
	if err != nil {
		return err
	}

	completed := make([]*document.DocumentRecord, 0, len(docs))
	for _, d := range docs {
		if d.Status == document.StatusCompleted {
			completed = append(completed, d)
		}
	}

	if len(completed) == 0 {
		a.logger.Info("案件无已完成文档，跳过分析", "case_id", caseID)
		return nil
	}

	corpus := a.gatherText(ctx, c, completed)
	if corpus == "" {
		return a.recordFailure(caseID, "所有文档的文本提取均失败")
	}

	result, err := a.summarize(ctx, corpus, len(completed))
	if err != nil {
		a.logger.Error("案件分析 LLM 调用失败", "case_id", caseID, "error", err)
		if recErr := a.recordFailure(caseID, err.Error()); recErr != nil {
			return recErr
		}
		return err
	}

	entry := &domainAnalysis.CaseAnalysis{
		CaseID:      caseID,
		Tags:        result.Tags,
		Summary:     result.Summary,
		GeneratedAt: a.now().Unix(),
	}
	if err := a.analysisRepo.Save(entry); err != nil {
		return fmt.Errorf("保存分析结果失败: %w", err)
	}

	a.logger.Info("案件分析完成", "case_id", caseID, "tags", len(result.Tags))
	return nil
}

// Get 获取案件最新分析结果
func (a *Analyzer) Get(ctx context.Context, caseID string) (*domainAnalysis.CaseAnalysis, error) {
	if _, err := a.caseRepo.Get(caseID); err != nil {
		return nil, err
	}
	return a.analysisRepo.Get(caseID)
}

// gatherText 拉取已完成文档的提取文本并拼接
// 单个文档取文本失败只跳过该文档
func (a *Analyzer) gatherText(ctx context.Context, c *cases.Case, docs []*document.DocumentRecord) string {
	var sb strings.Builder
	for _, d := range docs {
		text, err := a.textSource.GetText(ctx, c.VaultID, d.VaultObjectID)
		if err != nil {
			a.logger.Warn("获取文档文本失败，跳过", "document_id", d.ID, "error", err)
			continue
		}
		if text.Text == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("【文档：%s】\n%s\n\n", d.Filename, text.Text))
	}
	return sb.String()
}

// summarize 在 token 预算内调用 LLM 生成标签与摘要
func (a *Analyzer) summarize(ctx context.Context, corpus string, docCount int) (*analysisResult, error) {
	estimator, err := llm.GetTokenEstimator()
	if err == nil {
		corpus = estimator.TruncateToTokens(corpus, a.cfg.MaxPromptTokens)
	} else {
		a.logger.Warn("token 估算器初始化失败，使用原始文本", "error", err)
	}

	prompt := buildAnalysisPrompt(corpus, docCount)

	content, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return parseAnalysisResult(content)
}

// buildAnalysisPrompt 构建案件分析 Prompt
func buildAnalysisPrompt(corpus string, docCount int) string {
	return fmt.Sprintf(`你是一个法律文档分析专家。以下是一个案件中 %d 份文档的提取文本，请通读后生成结构化分析。

文档内容：
%s

请提取以下信息并以 JSON 格式返回：

1. tags: 生成 3-8 个标签用于归类检索（数组，如 ["合同纠纷", "违约金", "证据清单"]）
2. summary: 用 2-3 句话概括这批文档的核心内容

JSON 格式要求：
- 所有字段必须存在
- 数组字段为空时返回 []
- 请以纯 JSON 格式返回，不要包含其他文本

返回 JSON。`, docCount, corpus)
}

// parseAnalysisResult 解析 LLM 返回的 JSON
// 兼容模型把 JSON 包在代码块里的情况
func parseAnalysisResult(content string) (*analysisResult, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var result analysisResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("解析分析结果失败: %w", err)
	}
	return &result, nil
}

// recordFailure 把失败信息写入分析记录，保留已有的标签/摘要
func (a *Analyzer) recordFailure(caseID, message string) error {
	entry, err := a.analysisRepo.Get(caseID)
	if err != nil || entry == nil {
		entry = &domainAnalysis.CaseAnalysis{CaseID: caseID}
	}
	entry.LastError = message
	entry.GeneratedAt = a.now().Unix()
	return a.analysisRepo.Save(entry)
}
