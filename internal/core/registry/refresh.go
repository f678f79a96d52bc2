package registry

import (
	"context"
	"fmt"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// ============================================================================
//                              地址表刷新
// ============================================================================

// Refresh 同步刷新本地地址表快照
//
// 持有 mu 写锁期间调用提供者的 Snapshot，刷新与注册/注销及读者串行化。
// 失败时保留上一次快照。
func (r *Registry) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	addrs, err := r.provider.Snapshot(ctx)
	r.metrics.AddressTableRefreshed(len(addrs), err)
	if err != nil {
		return fmt.Errorf("address table snapshot: %w", err)
	}

	table := make([]types.LocalAddress, 0, len(addrs))
	for _, a := range addrs {
		a.Addr = a.Addr.Unmap()
		if a.Addr.IsValid() {
			table = append(table, a)
		}
	}
	r.addrs = table
	logger.Debug("地址表已刷新", "entries", len(table))
	return nil
}

// Start 订阅地址表变更通知
//
// 每次通知都在通知回调内同步刷新快照，回调返回时新地址表已生效。
// 通知风暴经令牌桶限速：回调阻塞直到取得令牌，不丢弃刷新。
func (r *Registry) Start(_ context.Context) error {
	if r.closed.Load() {
		return types.ErrClosed
	}
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	sub, err := r.provider.Subscribe(r.notify)
	if err != nil {
		r.cancel()
		r.started.Store(false)
		return fmt.Errorf("subscribe address table: %w", err)
	}
	r.sub = sub

	logger.Info("地址表监听已启动", "rate", r.cfg.RefreshRate, "burst", r.cfg.RefreshBurst)
	return nil
}

// notify 变更通知回调，在提供者的通知协程上同步刷新
func (r *Registry) notify() {
	if r.closed.Load() {
		return
	}
	if err := r.limiter.Wait(r.ctx); err != nil {
		// 注册表关闭中
		return
	}
	if err := r.Refresh(r.ctx); err != nil {
		logger.Warn("刷新地址表失败", "err", err)
	}
}
