// Package casemark 封装远程 CaseMark 处理服务的 HTTP API
// OCR、切块、向量化和语义检索全部发生在远程，本地只持有对象引用和状态
package casemark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
)

// Client CaseMark API 客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient 创建客户端
func NewClient(cfg *config.CaseMarkConfig) *Client {
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.NewModuleLogger("casemark", "client"),
	}
}

// CreateVault 为案件创建 vault
func (c *Client) CreateVault(ctx context.Context, name string) (string, error) {
	reqBody := map[string]string{"name": name}

	var resp struct {
		VaultID string `json:"vault_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/vaults", reqBody, &resp); err != nil {
		return "", fmt.Errorf("failed to create vault: %w", err)
	}
	return resp.VaultID, nil
}

// DeleteVault 删除 vault 及其全部对象和索引
func (c *Client) DeleteVault(ctx context.Context, vaultID string) error {
	path := fmt.Sprintf("/vaults/%s", vaultID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete vault: %w", err)
	}
	return nil
}

// CreateStorageTarget 申请预签名上传目标
func (c *Client) CreateStorageTarget(ctx context.Context, vaultID, filename, contentType string) (*StorageTarget, error) {
	reqBody := map[string]string{
		"filename":     filename,
		"content_type": contentType,
	}

	var target StorageTarget
	path := fmt.Sprintf("/vaults/%s/objects", vaultID)
	if err := c.doJSON(ctx, http.MethodPost, path, reqBody, &target); err != nil {
		return nil, fmt.Errorf("failed to create storage target: %w", err)
	}

	c.logger.Debug("Storage target created",
		"vault_id", vaultID,
		"object_id", target.ObjectID,
		"filename", filename,
	)
	return &target, nil
}

// ListObjects 批量拉取 vault 中所有对象的远程状态
// 同步引擎每个回合只调用一次，不做逐文档查询
func (c *Client) ListObjects(ctx context.Context, vaultID string) ([]*VaultObject, error) {
	var resp struct {
		Objects []*VaultObject `json:"objects"`
	}
	path := fmt.Sprintf("/vaults/%s/objects", vaultID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list vault objects: %w", err)
	}
	return resp.Objects, nil
}

// GetObject 查询单个对象的远程状态
func (c *Client) GetObject(ctx context.Context, vaultID, objectID string) (*VaultObject, error) {
	var obj VaultObject
	path := fmt.Sprintf("/vaults/%s/objects/%s", vaultID, objectID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &obj); err != nil {
		return nil, fmt.Errorf("failed to get vault object: %w", err)
	}
	return &obj, nil
}

// TriggerIngestion 触发对象摄取（OCR、切块、建索引）
func (c *Client) TriggerIngestion(ctx context.Context, vaultID, objectID string) (*IngestionJob, error) {
	var job IngestionJob
	path := fmt.Sprintf("/vaults/%s/objects/%s/ingest", vaultID, objectID)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &job); err != nil {
		return nil, fmt.Errorf("failed to trigger ingestion: %w", err)
	}

	c.logger.Debug("Ingestion triggered",
		"vault_id", vaultID,
		"object_id", objectID,
		"job_id", job.JobID,
	)
	return &job, nil
}

// GetText 获取对象的提取文本
func (c *Client) GetText(ctx context.Context, vaultID, objectID string) (*ObjectText, error) {
	var text ObjectText
	path := fmt.Sprintf("/vaults/%s/objects/%s/text", vaultID, objectID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &text); err != nil {
		return nil, fmt.Errorf("failed to get object text: %w", err)
	}
	return &text, nil
}

// Search 在 vault 内执行语义检索
func (c *Client) Search(ctx context.Context, vaultID, query string, topK int) (*SearchResult, error) {
	reqBody := map[string]interface{}{
		"query":  query,
		"method": "hybrid",
		"top_k":  topK,
	}

	var result SearchResult
	path := fmt.Sprintf("/vaults/%s/search", vaultID)
	if err := c.doJSON(ctx, http.MethodPost, path, reqBody, &result); err != nil {
		return nil, fmt.Errorf("failed to search vault: %w", err)
	}

	c.logger.Debug("Search completed",
		"vault_id", vaultID,
		"chunks", len(result.Chunks),
	)
	return &result, nil
}

// DeleteObject 删除 vault 中的对象
func (c *Client) DeleteObject(ctx context.Context, vaultID, objectID string) error {
	path := fmt.Sprintf("/vaults/%s/objects/%s", vaultID, objectID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete vault object: %w", err)
	}
	return nil
}

// MapIngestionStatus 把远程摄取状态映射为本地文档状态
// 未知的远程状态映射为空串，调用方应忽略
func MapIngestionStatus(remote string) document.Status {
	switch remote {
	case RemoteStatusQueued, RemoteStatusProcessing:
		return document.StatusProcessing
	case RemoteStatusComplete:
		return document.StatusCompleted
	case RemoteStatusFailed:
		return document.StatusFailed
	default:
		return ""
	}
}

// doJSON 执行一次 JSON 请求
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var bodyReader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("casemark API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.readAPIError(resp)
	}

	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readAPIError 解析错误响应体
func (c *Client) readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	message := string(body)
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			message = parsed.Error
		} else if parsed.Message != "" {
			message = parsed.Message
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}
