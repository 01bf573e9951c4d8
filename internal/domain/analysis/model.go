package analysis

// CaseAnalysis 案件分析结果
// 由摄取完成后的去抖触发器驱动，整批文档稳定后只生成一次
type CaseAnalysis struct {
	CaseID      string   // 案件 ID（主键，重新分析就地覆盖）
	Tags        []string // 提取的标签
	Summary     string   // 案件内容摘要
	LastError   string   // 最近一次失败信息（成功时为空）
	GeneratedAt int64    // 生成时间（Unix 秒）
}

// Repository 分析结果仓库接口
type Repository interface {
	Save(a *CaseAnalysis) error
	Get(caseID string) (*CaseAnalysis, error)
	DeleteByCase(caseID string) error
}
