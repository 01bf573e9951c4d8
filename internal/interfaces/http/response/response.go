package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainCases "github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	domainSearch "github.com/CaseMark/discovery-desktop/internal/domain/search"
)

// 业务错误码
const (
	CodeOK            = 0
	CodeInvalidParam  = 100001
	CodeNotFound      = 100002
	CodeConflict      = 100003
	CodeInternalError = 100004
	CodeRemoteError   = 100005
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeOK,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, message string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    errCode,
		Message: message,
	})
}

// ErrorWithDetail 带详情的错误响应
func ErrorWithDetail(c *gin.Context, httpCode int, errCode int, message, detail string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    errCode,
		Message: message,
		Detail:  detail,
	})
}

// FromDomainError 把领域错误映射为 HTTP 响应
// 校验类错误返回 400，资源不存在返回 404，其余归为 500
func FromDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainCases.ErrCaseNotFound),
		errors.Is(err, document.ErrDocumentNotFound),
		errors.Is(err, domainSearch.ErrSearchNotFound):
		Error(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, domainCases.ErrCaseNameRequired),
		errors.Is(err, domainSearch.ErrQueryRequired),
		errors.Is(err, domainSearch.ErrInvalidThreshold),
		errors.Is(err, document.ErrEmptyBatch),
		errors.Is(err, document.ErrBatchTooLarge),
		errors.Is(err, document.ErrUnsupportedFileType):
		Error(c, http.StatusBadRequest, CodeInvalidParam, err.Error())
	case errors.Is(err, document.ErrNotRetryable):
		Error(c, http.StatusConflict, CodeConflict, err.Error())
	default:
		ErrorWithDetail(c, http.StatusInternalServerError, CodeInternalError, "内部错误", err.Error())
	}
}
