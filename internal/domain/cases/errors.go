package cases

import "errors"

// 案件相关错误
var (
	// ErrCaseNotFound 案件不存在
	ErrCaseNotFound = errors.New("case not found")
	// ErrCaseNameRequired 案件名称必填
	ErrCaseNameRequired = errors.New("case name is required")
)
