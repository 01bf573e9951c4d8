package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
)

// AnalyzeFunc 下游案件分析任务
type AnalyzeFunc func(ctx context.Context, caseID string) error

// AnalysisTrigger 案件分析的尾部去抖调度器
// 大批量摄取中连续完成的文档会各通知一次，这里把它们折叠成
// 最后一次完成之后 DEBOUNCE 时长才发出的一次下游调用
// 每个案件最多只有一个待触发的定时器
type AnalysisTrigger struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	debounce time.Duration
	analyze  AnalyzeFunc
	logger   *slog.Logger
}

// NewAnalysisTrigger 创建分析触发器
func NewAnalysisTrigger(debounce time.Duration, analyze AnalyzeFunc) *AnalysisTrigger {
	return &AnalysisTrigger{
		timers:   make(map[string]*time.Timer),
		debounce: debounce,
		analyze:  analyze,
		logger:   log.NewModuleLogger("ingest", "analysis_trigger"),
	}
}

// Notify 通知案件有文档完成摄取
// 取消已有的待触发定时器并重新计时，实现尾部去抖
func (t *AnalysisTrigger) Notify(caseID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[caseID]; ok {
		timer.Stop()
	}

	t.timers[caseID] = time.AfterFunc(t.debounce, func() {
		t.fire(caseID)
	})
}

// fire 定时器到期后执行下游分析
// 失败只记录日志不自动重试；下一次完成事件会再次调度
func (t *AnalysisTrigger) fire(caseID string) {
	t.mu.Lock()
	delete(t.timers, caseID)
	t.mu.Unlock()

	t.logger.Info("触发案件分析", "case_id", caseID)

	if err := t.analyze(context.Background(), caseID); err != nil {
		t.logger.Error("案件分析失败", "case_id", caseID, "error", err)
	}
}

// Stop 取消所有待触发的定时器，进程退出时调用
func (t *AnalysisTrigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for caseID, timer := range t.timers {
		timer.Stop()
		delete(t.timers, caseID)
	}
}
