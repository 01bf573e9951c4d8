package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CaseMark/discovery-desktop/internal/application/ingest"
	"github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/interfaces/http/response"
)

// DocumentHandler 文档处理器
// 覆盖登记、确认、状态列表、重试与删除
type DocumentHandler struct {
	upload   *ingest.UploadService
	caseRepo cases.Repository
	remote   *casemark.Client
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(upload *ingest.UploadService, caseRepo cases.Repository, remote *casemark.Client) *DocumentHandler {
	return &DocumentHandler{upload: upload, caseRepo: caseRepo, remote: remote}
}

// List 列出案件文档
// 顺带做一次受去抖约束的远程状态同步；同步失败静默返回本地数据
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.upload.ListDocuments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, docs)
}

// Register 登记单个文件
func (h *DocumentHandler) Register(c *gin.Context) {
	var req ingest.FileSpec
	if err := c.ShouldBindJSON(&req); err != nil || req.Filename == "" {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParam, "参数错误")
		return
	}

	result, err := h.upload.Register(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, result)
}

// RegisterBatchRequest 批量登记请求
type RegisterBatchRequest struct {
	Files []ingest.FileSpec `json:"files" binding:"required"`
}

// RegisterBatch 批量登记文件
// 返回部分成功汇总，单项失败不拖垮批次
func (h *DocumentHandler) RegisterBatch(c *gin.Context) {
	var req RegisterBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParam, "参数错误")
		return
	}

	result, err := h.upload.RegisterBatch(c.Request.Context(), c.Param("id"), req.Files)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, result)
}

// ConfirmRequest 确认请求
type ConfirmRequest struct {
	DocumentIDs []string `json:"document_ids" binding:"required"`
}

// Confirm 确认传输完成并触发远程摄取
func (h *DocumentHandler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParam, "参数错误")
		return
	}

	summary, err := h.upload.Confirm(c.Request.Context(), c.Param("id"), req.DocumentIDs)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, summary)
}

// Retry 重试失败的文档
func (h *DocumentHandler) Retry(c *gin.Context) {
	if err := h.upload.Retry(c.Request.Context(), c.Param("docId")); err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, nil)
}

// RetryStuck 重试案件中所有卡住的文档
func (h *DocumentHandler) RetryStuck(c *gin.Context) {
	summary, err := h.upload.RetryStuck(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, summary)
}

// Delete 删除文档
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.upload.DeleteDocument(c.Request.Context(), c.Param("docId")); err != nil {
		response.FromDomainError(c, err)
		return
	}

	response.Success(c, nil)
}

// GetText 获取文档的提取文本
// 直接透传远程服务的 OCR 结果
func (h *DocumentHandler) GetText(c *gin.Context) {
	doc, err := h.upload.GetDocument(c.Request.Context(), c.Param("docId"))
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	caseRecord, err := h.caseRepo.Get(doc.CaseID)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}

	text, err := h.remote.GetText(c.Request.Context(), caseRecord.VaultID, doc.VaultObjectID)
	if err != nil {
		if apiErr, ok := casemark.AsAPIError(err); ok && apiErr.IsNotFound() {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "文本尚未生成")
			return
		}
		response.ErrorWithDetail(c, http.StatusBadGateway, response.CodeRemoteError, "远程服务错误", err.Error())
		return
	}

	response.Success(c, text)
}
