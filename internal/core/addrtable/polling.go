package addrtable

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// ============================================================================
//                              PollingProvider
// ============================================================================

// PollingProvider 基于轮询的地址表
//
// 第一个订阅者登记时启动轮询，每个间隔计算一次地址表指纹，
// 指纹变化时通知全部订阅者。最后一个订阅者注销后停止轮询。
type PollingProvider struct {
	source   Source
	interval time.Duration
	clock    clock.Clock

	subs subscribers

	mu              sync.Mutex
	lastFingerprint string
	running         atomic.Bool
	cancel          context.CancelFunc
	wg              sync.WaitGroup
}

// NewPollingProvider 创建轮询地址表
func NewPollingProvider(source Source, interval time.Duration) *PollingProvider {
	return &PollingProvider{
		source:   source,
		interval: interval,
		clock:    clock.New(),
	}
}

// WithClock 替换时钟（测试用），必须在订阅前调用
func (p *PollingProvider) WithClock(clk clock.Clock) *PollingProvider {
	p.clock = clk
	return p
}

// Snapshot 获取当前地址表
func (p *PollingProvider) Snapshot(ctx context.Context) ([]types.LocalAddress, error) {
	entries, err := p.source(ctx)
	if err != nil {
		return nil, err
	}
	return normalize(entries), nil
}

// Subscribe 登记变更通知
func (p *PollingProvider) Subscribe(notify func()) (io.Closer, error) {
	id, _ := p.subs.add(notify)
	if err := p.start(); err != nil {
		p.subs.remove(id)
		return nil, err
	}
	return closerFunc(func() error {
		p.subs.remove(id)
		if p.subs.len() == 0 {
			p.stop()
		}
		return nil
	}), nil
}

// Running 检查轮询是否运行
func (p *PollingProvider) Running() bool {
	return p.running.Load()
}

func (p *PollingProvider) start() error {
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	// 初始化指纹
	entries, err := p.Snapshot(ctx)
	if err != nil {
		cancel()
		p.running.Store(false)
		return err
	}
	p.mu.Lock()
	p.lastFingerprint = Fingerprint(entries)
	p.cancel = cancel
	p.mu.Unlock()

	ticker := p.clock.Ticker(p.interval)
	p.wg.Add(1)
	go p.pollLoop(ctx, ticker)

	logger.Info("地址表轮询已启动", "interval", p.interval)
	return nil
}

func (p *PollingProvider) stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	cancel()
	p.wg.Wait()
	logger.Info("地址表轮询已停止")
}

// pollLoop 轮询循环
func (p *PollingProvider) pollLoop(ctx context.Context, ticker *clock.Ticker) {
	defer p.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

// check 比较指纹，变化时通知
func (p *PollingProvider) check(ctx context.Context) {
	entries, err := p.Snapshot(ctx)
	if err != nil {
		logger.Debug("轮询地址表失败", "err", err)
		return
	}
	fp := Fingerprint(entries)

	p.mu.Lock()
	last := p.lastFingerprint
	p.lastFingerprint = fp
	p.mu.Unlock()

	if fp == last {
		return
	}
	logger.Debug("检测到地址表变化", "old_fingerprint", last[:8], "new_fingerprint", fp[:8], "entries", len(entries))
	p.subs.notify()
}
