package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appSearch "github.com/CaseMark/discovery-desktop/internal/application/search"
	"github.com/CaseMark/discovery-desktop/internal/interfaces/http/response"
)

// SearchHandler 检索处理器
type SearchHandler struct {
	service *appSearch.Service
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(service *appSearch.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// ExecuteSearchRequest 执行检索请求
type ExecuteSearchRequest struct {
	Query       string `json:"query" binding:"required"`
	Threshold   int    `json:"threshold"`
	WithSummary bool   `json:"with_summary"`
}

// Execute 执行检索并缓存完整结果
func (h *SearchHandler) Execute(c *gin.Context) {
	var req ExecuteSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParam, "参数错误")
		return
	}

	result, err := h.service.Execute(c.Request.Context(), c.Param("id"), req.Query, appSearch.ExecuteOptions{
		Threshold:   req.Threshold,
		WithSummary: req.WithSummary,
	})
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, result)
}

// List 列出案件的检索历史（不含缓存载荷）
func (h *SearchHandler) List(c *gin.Context) {
	result, err := h.service.ListByCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, result)
}

// Get 回放缓存的检索结果，零重算
func (h *SearchHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("searchId"))
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateThresholdRequest 调整阈值请求
type UpdateThresholdRequest struct {
	Threshold int  `json:"threshold"`
	Persist   bool `json:"persist"`
}

// UpdateThreshold 以新阈值重新执行检索
// 缓存里低于原阈值的片段从未取回，必须重新执行而不是本地重过滤
func (h *SearchHandler) UpdateThreshold(c *gin.Context) {
	var req UpdateThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParam, "参数错误")
		return
	}

	result, err := h.service.Rerun(c.Request.Context(), c.Param("searchId"), req.Threshold, req.Persist)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, result)
}
