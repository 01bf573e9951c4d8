package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
)

// StatusFetcher 文档状态列表的来源
// 由 APIClient 实现，接口化便于测试替身
type StatusFetcher interface {
	ListDocuments(ctx context.Context, caseID string) ([]*document.DocumentRecord, error)
}

var _ StatusFetcher = (*APIClient)(nil)

// UpdateFunc 每次取到新状态列表后的回调
type UpdateFunc func(docs []*document.DocumentRecord)

// Poller 自适应状态轮询器
// 状态有变化时把间隔重置到下限，连续无变化时按倍率增长到上限；
// 没有文档处于 pending/processing 时自动停下
type Poller struct {
	fetcher  StatusFetcher
	cfg      *config.ClientConfig
	onUpdate UpdateFunc
	logger   *slog.Logger

	mu            sync.Mutex
	interval      time.Duration
	lastSignature string
	running       bool
	kick          chan struct{}
	cancel        context.CancelFunc
	done          chan struct{}
}

// NewPoller 创建轮询器
func NewPoller(fetcher StatusFetcher, cfg *config.ClientConfig, onUpdate UpdateFunc) *Poller {
	return &Poller{
		fetcher:  fetcher,
		cfg:      cfg,
		onUpdate: onUpdate,
		logger:   log.NewModuleLogger("client", "poller"),
		interval: cfg.PollFloor.Std(),
		kick:     make(chan struct{}, 1),
	}
}

// Start 启动对一个案件的轮询循环
// 已在运行时只触发一次立即轮询
func (p *Poller) Start(ctx context.Context, caseID string) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.Kick()
		return
	}
	p.running = true
	p.interval = p.cfg.PollFloor.Std()

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		p.loop(loopCtx, caseID)
	}()
}

// Wait 阻塞到当前轮询循环退出，未启动时立即返回
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Kick 强制立即执行一轮轮询，不等当前间隔走完
// 上传批次确认后调用，让新文档的状态尽快可见
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Stop 停止调度
// 只取消后续调度，不中断已发出的请求
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.running = false
	p.interval = p.cfg.PollFloor.Std()
}

// Interval 当前轮询间隔（测试用）
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// loop 轮询主循环
func (p *Poller) loop(ctx context.Context, caseID string) {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.interval = p.cfg.PollFloor.Std()
		p.mu.Unlock()
	}()

	for {
		p.mu.Lock()
		wait := p.interval
		p.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.kick:
			timer.Stop()
		case <-timer.C:
		}

		docs, err := p.fetcher.ListDocuments(ctx, caseID)
		if err != nil {
			if errors.Is(err, ErrCaseGone) {
				// 案件已删除，静默收场
				return
			}
			if ctx.Err() != nil {
				return
			}
			// 拉取失败不停止轮询，退到上限间隔给服务端减压
			p.logger.Warn("状态拉取失败，降速重试", "case_id", caseID, "error", err)
			p.mu.Lock()
			p.interval = p.cfg.PollCeiling.Std()
			p.mu.Unlock()
			continue
		}

		if p.onUpdate != nil {
			p.onUpdate(docs)
		}

		if !hasActive(docs) {
			// 所有文档已定型，停止调度
			return
		}

		p.adapt(statusSignature(docs))
	}
}

// adapt 根据状态签名调整下一轮间隔
func (p *Poller) adapt(signature string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if signature != p.lastSignature {
		p.lastSignature = signature
		p.interval = p.cfg.PollFloor.Std()
		return
	}

	grown := time.Duration(float64(p.interval) * p.cfg.PollFactor)
	if ceiling := p.cfg.PollCeiling.Std(); grown > ceiling {
		grown = ceiling
	}
	p.interval = grown
}

// hasActive 是否还有未定型的活跃文档
func hasActive(docs []*document.DocumentRecord) bool {
	for _, d := range docs {
		if d.Status == document.StatusPending ||
			d.Status == document.StatusUploading ||
			d.Status == document.StatusProcessing {
			return true
		}
	}
	return false
}

// statusSignature 对所有 文档ID:状态 对求哈希
// 排序保证与返回顺序无关
func statusSignature(docs []*document.DocumentRecord) string {
	pairs := make([]string, 0, len(docs))
	for _, d := range docs {
		pairs = append(pairs, fmt.Sprintf("%s:%s", d.ID, d.Status))
	}
	sort.Strings(pairs)

	sum := sha256.Sum256([]byte(strings.Join(pairs, ",")))
	return hex.EncodeToString(sum[:])
}
