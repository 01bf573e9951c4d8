package document

// Repository 文档仓库接口
type Repository interface {
	Save(doc *DocumentRecord) error
	Get(id string) (*DocumentRecord, error)
	ListByCase(caseID string) ([]*DocumentRecord, error)

	// UpdateStatus 无条件更新状态（用户显式操作，如重试）
	UpdateStatus(id string, status Status) error

	// UpdateStatusIf 带 CAS 保护的状态更新
	// 仅当当前状态仍等于 expected 时写入，返回是否写入成功
	// 防止两个交叠的同步回合把旧快照覆盖到新状态上
	UpdateStatusIf(id string, expected, next Status) (bool, error)

	// UpdateMetadata 回填远程服务得知的页数/大小
	// 独立于状态更新，即使状态不前进也允许写入
	UpdateMetadata(id string, pageCount int, sizeBytes int64) error

	Delete(id string) error
	DeleteByCase(caseID string) error
}
