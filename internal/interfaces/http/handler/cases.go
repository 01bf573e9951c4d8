package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appCases "github.com/CaseMark/discovery-desktop/internal/application/cases"
	"github.com/CaseMark/discovery-desktop/internal/interfaces/http/response"
)

// CaseHandler 案件处理器
type CaseHandler struct {
	service *appCases.Service
}

// NewCaseHandler 创建案件处理器
func NewCaseHandler(service *appCases.Service) *CaseHandler {
	return &CaseHandler{service: service}
}

// CreateCaseRequest 创建案件请求
type CreateCaseRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create 创建案件
func (h *CaseHandler) Create(c *gin.Context) {
	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParam, "参数错误")
		return
	}

	result, err := h.service.Create(c.Request.Context(), req.Name)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, result)
}

// List 列出全部案件
func (h *CaseHandler) List(c *gin.Context) {
	result, err := h.service.List(c.Request.Context())
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, result)
}

// Get 获取案件详情
func (h *CaseHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, result)
}

// Delete 删除案件及其全部文档
func (h *CaseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, nil)
}
