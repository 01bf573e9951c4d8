package cases

// Case 案件
// 每个案件对应远程服务中的一个 vault（文档与检索索引的容器）
type Case struct {
	ID        string // 案件 ID（UUID）
	Name      string // 案件名称
	VaultID   string // 远程 vault 引用
	CreatedAt int64  // 创建时间（Unix 秒）
	UpdatedAt int64  // 最后更新时间（Unix 秒）
}

// Repository 案件仓库接口
type Repository interface {
	Save(c *Case) error
	Get(id string) (*Case, error)
	List() ([]*Case, error)
	Delete(id string) error
}
