package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appAnalysis "github.com/CaseMark/discovery-desktop/internal/application/analysis"
	"github.com/CaseMark/discovery-desktop/internal/interfaces/http/response"
)

// AnalysisHandler 案件分析处理器
type AnalysisHandler struct {
	analyzer *appAnalysis.Analyzer
}

// NewAnalysisHandler 创建分析处理器
func NewAnalysisHandler(analyzer *appAnalysis.Analyzer) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer}
}

// Get 获取案件最新分析结果
// 分析由摄取完成事件驱动，这里只读
func (h *AnalysisHandler) Get(c *gin.Context) {
	result, err := h.analyzer.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	if result == nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "分析结果尚未生成")
		return
	}

	response.Success(c, result)
}
