// Package client 桌面端本地服务的访问层
// 上传编排器、自适应轮询器与目录监听都建立在这个 API 客户端之上
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/CaseMark/discovery-desktop/internal/application/ingest"
	appSearch "github.com/CaseMark/discovery-desktop/internal/application/search"
	domainAnalysis "github.com/CaseMark/discovery-desktop/internal/domain/analysis"
	domainCases "github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	domainSearch "github.com/CaseMark/discovery-desktop/internal/domain/search"
)

// ErrCaseGone 案件已不存在（服务端返回 404）
// 轮询器据此静默停止，不作为错误上报
var ErrCaseGone = errors.New("case no longer exists")

// APIClient 基于 resty 封装的 HTTP 客户端，直接复用业务结构体
type APIClient struct {
	client  *resty.Client
	baseURL string
}

// NewAPIClient 创建 API 客户端
func NewAPIClient(baseURL string) *APIClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json")

	return &APIClient{
		client:  client,
		baseURL: baseURL,
	}
}

// APIResponse 通用 API 响应（复用 response.Response 的 JSON 结构）
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// do 执行请求并统一处理成功/错误响应的 JSON 解析
// resty 的 SetResult 仅在 2xx 时解析，SetError 在 4xx/5xx 时解析
// 由于两者的 code/message 字段一致，用同类型接收即可
func do[T any](r *resty.Request, result *APIResponse[T]) *resty.Request {
	return r.SetResult(result).SetError(result)
}

// checkResponse 非 2xx 响应转换为错误
func checkResponse(resp *resty.Response, message string) error {
	if resp.IsSuccess() {
		return nil
	}
	return fmt.Errorf("%s: status %d (%s)", message, resp.StatusCode(), resp.String())
}

// checkCaseResponse 同 checkResponse，但把 404 映射为 ErrCaseGone
// 仅用于以案件为粒度的端点，文档级/检索级 404 不代表案件不存在
func checkCaseResponse(resp *resty.Response, message string) error {
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrCaseGone, message)
	}
	return checkResponse(resp, message)
}

// HealthCheck 健康检查
func (c *APIClient) HealthCheck(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode())
	}
	return nil
}

// CreateCase 创建案件
func (c *APIClient) CreateCase(ctx context.Context, name string) (*domainCases.Case, error) {
	var result APIResponse[*domainCases.Case]
	resp, err := do(c.client.R().SetContext(ctx).SetBody(map[string]string{"name": name}), &result).
		Post("/api/v1/cases")
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp, "创建案件失败"); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// ListCases 列出全部案件
func (c *APIClient) ListCases(ctx context.Context) ([]*domainCases.Case, error) {
	var result APIResponse[[]*domainCases.Case]
	resp, err := do(c.client.R().SetContext(ctx), &result).
		Get("/api/v1/cases")
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp, "获取案件列表失败"); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// DeleteCase 删除案件
func (c *APIClient) DeleteCase(ctx context.Context, caseID string) error {
	var result APIResponse[any]
	resp, err := do(c.client.R().SetContext(ctx), &result).
		Delete("/api/v1/cases/" + caseID)
	if err != nil {
		return err
	}
	return checkResponse(resp, "删除案件失败")
}

// ListDocuments 列出案件文档（服务端顺带做状态同步）
func (c *APIClient) ListDocuments(ctx context.Context, caseID string) ([]*document.DocumentRecord, error) {
	var result APIResponse[[]*document.DocumentRecord]
	resp, err := do(c.client.R().SetContext(ctx), &result).
		Get("/api/v1/cases/" + caseID + "/documents")
	if err != nil {
		return nil, err
	}
	if err := checkCaseResponse(resp, "获取文档列表失败"); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Register 登记单个文件
func (c *APIClient) Register(ctx context.Context, caseID string, file ingest.FileSpec) (*ingest.RegisteredDocument, error) {
	var result APIResponse[*ingest.RegisteredDocument]
	resp, err := do(c.client.R().SetContext(ctx).SetBody(file), &result).
		Post("/api/v1/cases/" + caseID + "/documents")
	if err != nil {
		return nil, err
	}
	if err := checkCaseResponse(resp, "登记文件失败"); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// RegisterBatch 批量登记文件
func (c *APIClient) RegisterBatch(ctx context.Context, caseID string, files []ingest.FileSpec) (*ingest.RegisterResult, error) {
	var result APIResponse[*ingest.RegisterResult]
	resp, err := do(c.client.R().SetContext(ctx).SetBody(map[string]any{"files": files}), &result).
		Post("/api/v1/cases/" + caseID + "/documents/batch")
	if err != nil {
		return nil, err
	}
	if err := checkCaseResponse(resp, "批量登记失败"); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Confirm 确认传输完成，触发远程摄取
func (c *APIClient) Confirm(ctx context.Context, caseID string, documentIDs []string) (*ingest.BatchSummary, error) {
	var result APIResponse[*ingest.BatchSummary]
	resp, err := do(c.client.R().SetContext(ctx).SetBody(map[string]any{"document_ids": documentIDs}), &result).
		Post("/api/v1/cases/" + caseID + "/documents/confirm")
	if err != nil {
		return nil, err
	}
	if err := checkCaseResponse(resp, "确认上传失败"); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Retry 重试失败的文档
func (c *APIClient) Retry(ctx context.Context, caseID, documentID string) error {
	var result APIResponse[any]
	resp, err := do(c.client.R().SetContext(ctx), &result).
		Post("/api/v1/cases/" + caseID + "/documents/" + documentID + "/retry")
	if err != nil {
		return err
	}
	return checkResponse(resp, "重试失败")
}

// RetryStuck 重试所有卡住的文档
func (c *APIClient) RetryStuck(ctx context.Context, caseID string) (*ingest.BatchSummary, error) {
	var result APIResponse[*ingest.BatchSummary]
	resp, err := do(c.client.R().SetContext(ctx), &result).
		Post("/api/v1/cases/" + caseID + "/documents/retry-stuck")
	if err != nil {
		return nil, err
	}
	if err := checkCaseResponse(resp, "重试卡住文档失败"); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Transfer 把文件二进制直传到预签名存储地址
// 不经过本地服务，直接对存储层 PUT
func (c *APIClient) Transfer(ctx context.Context, uploadURL, path, contentType string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取文件失败: %w", err)
	}

	resp, err := resty.New().
		SetTimeout(5*time.Minute).
		R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Put(uploadURL)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("传输失败: status %d", resp.StatusCode())
	}
	return nil
}

// Search 执行检索
func (c *APIClient) Search(ctx context.Context, caseID, query string, threshold int, withSummary bool) (*appSearch.ExecuteResult, error) {
	var result APIResponse[*appSearch.ExecuteResult]
	resp, err := do(c.client.R().SetContext(ctx).SetBody(map[string]any{
		"query":        query,
		"threshold":    threshold,
		"with_summary": withSummary,
	}), &result).
		Post("/api/v1/cases/" + caseID + "/searches")
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp, "检索失败"); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetSearch 回放缓存的检索结果
func (c *APIClient) GetSearch(ctx context.Context, searchID string) (*domainSearch.Response, error) {
	var result APIResponse[*domainSearch.Response]
	resp, err := do(c.client.R().SetContext(ctx), &result).
		Get("/api/v1/searches/" + searchID)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp, "获取检索结果失败"); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// UpdateThreshold 以新阈值重新执行检索
func (c *APIClient) UpdateThreshold(ctx context.Context, searchID string, threshold int, persist bool) (*domainSearch.Response, error) {
	var result APIResponse[*domainSearch.Response]
	resp, err := do(c.client.R().SetContext(ctx).SetBody(map[string]any{
		"threshold": threshold,
		"persist":   persist,
	}), &result).
		Patch("/api/v1/searches/" + searchID + "/threshold")
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp, "调整阈值失败"); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetAnalysis 获取案件分析结果
func (c *APIClient) GetAnalysis(ctx context.Context, caseID string) (*domainAnalysis.CaseAnalysis, error) {
	var result APIResponse[*domainAnalysis.CaseAnalysis]
	resp, err := do(c.client.R().SetContext(ctx), &result).
		Get("/api/v1/cases/" + caseID + "/analysis")
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp, "获取分析结果失败"); err != nil {
		return nil, err
	}
	return result.Data, nil
}
