package document

import "time"

// Status 文档摄取状态
// 对应远程 CaseMark 服务的处理流水线阶段
type Status string

// 摄取状态常量
const (
	StatusPending    Status = "pending"    // 已登记，尚未开始传输
	StatusUploading  Status = "uploading"  // 已获取存储目标，传输中
	StatusProcessing Status = "processing" // 已提交远程摄取（OCR/切块/向量化）
	StatusCompleted  Status = "completed"  // 远程摄取完成，可检索
	StatusFailed     Status = "failed"     // 摄取失败（终态）
)

// statusPriority 状态优先级表
// failed 故意给最高优先级：错误状态必须胜出，
// 不能被滞后的 processing 远程读数悄悄掩盖
var statusPriority = map[Status]int{
	StatusPending:    1,
	StatusUploading:  2,
	StatusProcessing: 3,
	StatusCompleted:  4,
	StatusFailed:     5,
}

// Priority 返回状态的优先级值，未知状态返回 0
func Priority(s Status) int {
	return statusPriority[s]
}

// ShouldAdvance 判断远程观测到的状态能否覆盖本地状态
// 仅当远程优先级严格大于本地时返回 true，保证展示给用户的进度永不回退
func ShouldAdvance(local, remote Status) bool {
	return Priority(remote) > Priority(local)
}

// IsSettled 判断状态是否已定型（终态，同步引擎不再关注）
func IsSettled(s Status) bool {
	return s == StatusCompleted || s == StatusFailed
}

// DocumentRecord 本地文档记录
// 归属于案件，案件删除时级联删除
type DocumentRecord struct {
	ID            string // 文档 ID（UUID）
	CaseID        string // 所属案件 ID
	VaultObjectID string // 远程 vault 中的对象引用
	Filename      string // 原始文件名
	ContentType   string // MIME 类型
	SizeBytes     int64  // 文件大小（远程可能晚于上传得知，0 表示未知）
	PageCount     int    // 页数（远程 OCR 后回填，0 表示未知）
	Status        Status // 摄取状态
	UploadedAt    int64  // 登记时间（Unix 秒）
	UpdatedAt     int64  // 最后更新时间（Unix 秒）
}

// Settled 判断文档是否已定型
func (d *DocumentRecord) Settled() bool {
	return IsSettled(d.Status)
}

// CanRetry 判断文档能否重试摄取
// 仅失败的文档允许用户显式重试；重试会把状态重置为 processing
func (d *DocumentRecord) CanRetry() bool {
	return d.Status == StatusFailed
}

// StuckSince 判断文档是否卡在 processing 超过给定时长
// 用于"重试所有卡住的文档"操作
func (d *DocumentRecord) StuckSince(cutoff time.Duration, now int64) bool {
	return d.Status == StatusProcessing && now-d.UpdatedAt > int64(cutoff.Seconds())
}
