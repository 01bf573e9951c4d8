package casemark

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError 远程服务返回的错误
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("casemark API error (status %d): %s", e.StatusCode, e.Message)
}

// IsAlreadyInProgress 判断是否为"摄取已在进行中"
// 这类响应按成功处理：说明触发请求重复了，而不是失败了
func (e *APIError) IsAlreadyInProgress() bool {
	if e.StatusCode == http.StatusConflict {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "already in progress")
}

// IsRateLimited 判断是否为限流响应
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsNotFound 判断远程对象/vault 是否不存在
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// AsAPIError 从错误链中提取 APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
