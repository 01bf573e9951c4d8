package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusPriorityOrdering(t *testing.T) {
	// 优先级严格递增：pending < uploading < processing < completed < failed
	ordered := []Status{StatusPending, StatusUploading, StatusProcessing, StatusCompleted, StatusFailed}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, Priority(ordered[i]), Priority(ordered[i-1]),
			"%s 的优先级应高于 %s", ordered[i], ordered[i-1])
	}

	// 未知状态优先级为 0，永远不会覆盖已知状态
	assert.Equal(t, 0, Priority(Status("unknown")))
}

func TestShouldAdvance(t *testing.T) {
	// 远程领先本地时前进
	assert.True(t, ShouldAdvance(StatusPending, StatusUploading))
	assert.True(t, ShouldAdvance(StatusUploading, StatusProcessing))
	assert.True(t, ShouldAdvance(StatusProcessing, StatusCompleted))

	// failed 可以覆盖任何非终态
	assert.True(t, ShouldAdvance(StatusPending, StatusFailed))
	assert.True(t, ShouldAdvance(StatusProcessing, StatusFailed))

	// 相同状态不重复写入
	assert.False(t, ShouldAdvance(StatusProcessing, StatusProcessing))

	// 滞后的远程读数不能让进度回退
	assert.False(t, ShouldAdvance(StatusProcessing, StatusUploading))
	assert.False(t, ShouldAdvance(StatusCompleted, StatusProcessing))

	// 未知的远程状态被忽略
	assert.False(t, ShouldAdvance(StatusPending, Status("weird")))
}

func TestStatusMonotonicity(t *testing.T) {
	// 任意远程观测序列下，状态优先级单调不减
	observations := []Status{
		StatusUploading, StatusPending, StatusProcessing,
		StatusUploading, StatusCompleted, StatusProcessing,
	}

	local := StatusPending
	prev := Priority(local)
	for _, remote := range observations {
		if ShouldAdvance(local, remote) {
			local = remote
		}
		assert.GreaterOrEqual(t, Priority(local), prev)
		prev = Priority(local)
	}
	assert.Equal(t, StatusCompleted, local)
}

func TestIsSettled(t *testing.T) {
	assert.True(t, IsSettled(StatusCompleted))
	assert.True(t, IsSettled(StatusFailed))
	assert.False(t, IsSettled(StatusPending))
	assert.False(t, IsSettled(StatusUploading))
	assert.False(t, IsSettled(StatusProcessing))
}

func TestCanRetry(t *testing.T) {
	doc := &DocumentRecord{Status: StatusFailed}
	assert.True(t, doc.CanRetry())

	doc.Status = StatusProcessing
	assert.False(t, doc.CanRetry())

	doc.Status = StatusCompleted
	assert.False(t, doc.CanRetry())
}

func TestStuckSince(t *testing.T) {
	now := time.Now().Unix()

	doc := &DocumentRecord{Status: StatusProcessing, UpdatedAt: now - 3600}
	assert.True(t, doc.StuckSince(30*time.Minute, now))
	assert.False(t, doc.StuckSince(2*time.Hour, now))

	// 非 processing 状态不算卡住
	doc.Status = StatusCompleted
	assert.False(t, doc.StuckSince(time.Minute, now))
}
