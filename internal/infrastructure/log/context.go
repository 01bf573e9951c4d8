package log

import (
	"context"
	"log/slog"
)

// 上下文键定义
const (
	// RequestContextID HTTP 请求 ID
	RequestContextID = "request_id"

	// CaseContextID 案件 ID
	CaseContextID = "case_id"

	// DocumentContextID 文档 ID
	DocumentContextID = "document_id"

	// SearchContextID 检索 ID
	SearchContextID = "search_id"
)

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextID, requestID)
}

// WithCaseID 在上下文中添加案件 ID
func WithCaseID(ctx context.Context, caseID string) context.Context {
	return context.WithValue(ctx, CaseContextID, caseID)
}

// WithDocumentID 在上下文中添加文档 ID
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, DocumentContextID, documentID)
}

// WithSearchID 在上下文中添加检索 ID
func WithSearchID(ctx context.Context, searchID string) context.Context {
	return context.WithValue(ctx, SearchContextID, searchID)
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if requestID := ctx.Value(RequestContextID); requestID != nil {
		attrs = append(attrs, slog.String("request_id", requestID.(string)))
	}
	if caseID := ctx.Value(CaseContextID); caseID != nil {
		attrs = append(attrs, slog.String("case_id", caseID.(string)))
	}
	if documentID := ctx.Value(DocumentContextID); documentID != nil {
		attrs = append(attrs, slog.String("document_id", documentID.(string)))
	}
	if searchID := ctx.Value(SearchContextID); searchID != nil {
		attrs = append(attrs, slog.String("search_id", searchID.(string)))
	}

	return attrs
}
