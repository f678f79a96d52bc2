// Package route 实现单个目的链路地址的解析状态机
//
// # 状态机
//
//	Unresolved ──resolve──▶ Pending ──成功──▶ Resolved
//	     ▲                     │                 │
//	     └────────失败─────────┘                 │
//	     ▲                                       │
//	     └──────────── Restart（Router 替换）────┘
//
// 同一 Route 同时最多只有一个未完成查询，无论并发调用者有多少：
// Unresolved 时第一个调用者提交查询，其余调用者加入等待列表。
//
// # 生命周期
//
// Route 由 Router 的映射持有一个引用，每个未完成查询再持有一个引用。
// 两者都释放后 Route 才算终结（触发 OnFree 钩子）。Router 驱逐时调用
// Shutdown：请求取消查询，但不等待；迟到的完成回调由孤立 Route 自身吸收。
package route

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-fabricat/internal/core/metrics"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
	"github.com/dep2p/go-fabricat/pkg/lib/log"
	"github.com/dep2p/go-fabricat/pkg/types"
)

var logger = log.Logger("core/route")

// ErrRetired Route 已被驱逐
//
// 调用方（Router）应重新查找映射后重试，不应把它暴露给上层。
var ErrRetired = errors.New("route: retired")

// ============================================================================
//                              配置
// ============================================================================

// Config Route 创建参数
type Config struct {
	// Dest 目的链路地址（映射键，仅用于诊断）
	Dest types.LinkAddress

	// Query 查询输入（源/目的身份、分区键），创建后不可变
	Query interfaces.PathQuery

	// Client 路径查询客户端
	Client interfaces.PathQueryClient

	// Metrics 指标收集器（可选）
	Metrics *metrics.Collector

	// OnFree 最后一个引用释放时调用（可选）
	OnFree func(*Route)
}

// ============================================================================
//                              Route 实现
// ============================================================================

// waiter 一次等待登记
type waiter struct {
	handler interfaces.ResolveHandler
	ctx     any
	seq     uint64
}

// Route 单个目的端的缓存解析状态
type Route struct {
	dest    types.LinkAddress
	query   interfaces.PathQuery
	client  interfaces.PathQueryClient
	metrics *metrics.Collector
	onFree  func(*Route)

	mu      sync.Mutex
	state   types.RouteState
	path    types.PathRecord
	waiters []waiter
	seq     uint64

	// gen 当前查询代数，每次提交递增；完成回调据此识别过期结果
	gen uint64
	// handle 未完成查询的句柄，hasHandle 为 false 时无效
	handle    interfaces.QueryHandle
	hasHandle bool
	// retired Shutdown 后置位，此后不再接受等待者
	retired bool

	refs  atomic.Int32
	freed atomic.Bool
}

// New 创建 Unresolved 状态的 Route
//
// 返回的 Route 持有一个引用（映射引用），由创建者负责 Release。
func New(cfg Config) *Route {
	r := &Route{
		dest:    cfg.Dest,
		query:   cfg.Query,
		client:  cfg.Client,
		metrics: cfg.Metrics,
		onFree:  cfg.OnFree,
		state:   types.RouteUnresolved,
	}
	r.refs.Store(1)
	return r
}

// Dest 返回目的链路地址
func (r *Route) Dest() types.LinkAddress {
	return r.dest
}

// DestID 返回目的身份
func (r *Route) DestID() types.FabricID {
	return r.query.Dest
}

// State 返回当前状态
func (r *Route) State() types.RouteState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Refs 返回当前引用计数
func (r *Route) Refs() int32 {
	return r.refs.Load()
}

// Freed 检查 Route 是否已终结
func (r *Route) Freed() bool {
	return r.freed.Load()
}

// ============================================================================
//                              解析
// ============================================================================

// Resolve 解析路径记录
//
// Resolved 时同步返回缓存的路径记录；否则登记等待者并返回 types.ErrPending，
// 此后 handler 恰好被调用一次。Unresolved 时提交查询，若提交失败，
// 刚登记的等待者被移除，错误同步返回且不会再有回调。
func (r *Route) Resolve(h interfaces.ResolveHandler, ctx any) (types.PathRecord, error) {
	r.mu.Lock()
	if r.state == types.RouteResolved {
		path := r.path
		r.mu.Unlock()
		r.metrics.CacheHit()
		return path, nil
	}
	if r.retired {
		r.mu.Unlock()
		return types.PathRecord{}, ErrRetired
	}

	r.metrics.CacheMiss()
	seq := r.enqueueLocked(h, ctx)
	if r.state == types.RoutePending {
		r.mu.Unlock()
		return types.PathRecord{}, types.ErrPending
	}

	gen := r.beginLocked()
	r.mu.Unlock()

	if err := r.submit(gen, seq); err != nil {
		return types.PathRecord{}, err
	}
	return types.PathRecord{}, types.ErrPending
}

// Restart 以一组迁移来的等待者重新开始解析
//
// 用于 Router 替换映射条目：Unresolved 时提交新查询，Pending 时加入现有查询，
// Resolved 时立即交付结果。提交失败时这些等待者被同步通知失败。
// Route 已驱逐时返回 ErrRetired，等待者未被接收也未被通知。
func (r *Route) Restart(migrated []Waiter) error {
	r.mu.Lock()
	if r.retired {
		// 等待者仍归调用方所有，由调用方转交给当前映射条目
		r.mu.Unlock()
		return ErrRetired
	}
	for _, w := range migrated {
		r.enqueueLocked(w.Handler, w.Context)
	}
	switch r.state {
	case types.RoutePending:
		r.mu.Unlock()
		return nil
	case types.RouteResolved:
		// 并发的解析已经完成，直接交付结果
		path := r.path
		ws := r.detachLocked()
		r.mu.Unlock()
		notifyAll(r.metrics, ws, path, nil)
		return nil
	}
	gen := r.beginLocked()
	r.mu.Unlock()

	return r.submit(gen, 0)
}

// enqueueLocked 追加等待者，返回其序号
func (r *Route) enqueueLocked(h interfaces.ResolveHandler, ctx any) uint64 {
	r.seq++
	r.waiters = append(r.waiters, waiter{handler: h, ctx: ctx, seq: r.seq})
	return r.seq
}

// beginLocked 进入 Pending 并为即将提交的查询保留一个引用
func (r *Route) beginLocked() uint64 {
	r.gen++
	r.state = types.RoutePending
	r.hasHandle = false
	r.refs.Add(1)
	return r.gen
}

// submit 在锁外提交查询
//
// own 为触发提交的调用者的等待序号（0 表示没有同步调用者）。
func (r *Route) submit(gen, own uint64) error {
	handle, err := r.client.SubmitQuery(r.query, func(res interfaces.QueryResult) {
		r.complete(gen, res)
	})

	r.mu.Lock()
	if err != nil {
		r.metrics.QuerySubmitFailed()
		var others []waiter
		retired := r.retired
		if r.gen == gen && r.state == types.RoutePending {
			r.state = types.RouteUnresolved
			others = r.removeSeqLocked(own)
		}
		r.mu.Unlock()
		r.Release()

		logger.Warn("提交路径查询失败", "dest", r.dest, "dgid", r.query.Dest, "err", err)
		if retired {
			// Shutdown 已在提交窗口内以 ErrUnreachable 通知了全部等待者
			return nil
		}
		// 提交窗口内加入的其他等待者已收到 ErrPending，必须得到一次回调
		notify(r.metrics, others, types.PathRecord{}, err)
		return err
	}

	r.metrics.QuerySubmitted()
	cancel := false
	switch {
	case r.retired:
		cancel = true
	case r.gen == gen && r.state == types.RoutePending:
		r.handle = handle
		r.hasHandle = true
	}
	r.mu.Unlock()

	if cancel {
		// Shutdown 发生在提交窗口内，当时还没有句柄可取消；
		// 查询若已完成，客户端忽略该句柄
		r.client.CancelQuery(handle)
	}
	logger.Debug("已提交路径查询", "dest", r.dest, "dgid", r.query.Dest)
	return nil
}

// removeSeqLocked 移除指定序号的等待者，并摘下其余全部等待者返回
func (r *Route) removeSeqLocked(own uint64) []waiter {
	rest := make([]waiter, 0, len(r.waiters))
	for _, w := range r.waiters {
		if w.seq != own {
			rest = append(rest, w)
		}
	}
	r.waiters = nil
	return rest
}

// ============================================================================
//                              查询完成
// ============================================================================

// complete 查询完成回调，对每次成功提交恰好调用一次
func (r *Route) complete(gen uint64, res interfaces.QueryResult) {
	defer r.Release()
	r.metrics.QueryCompleted(res.Status)

	r.mu.Lock()
	if gen != r.gen || r.retired || r.state != types.RoutePending {
		// 孤立 Route 或过期查询：没有等待者需要通知
		r.hasHandle = false
		r.mu.Unlock()
		logger.Debug("丢弃过期查询结果", "dest", r.dest, "status", res.Status)
		return
	}
	r.hasHandle = false

	path, err := Classify(res)
	if err == nil {
		r.state = types.RouteResolved
		r.path = path
	} else {
		r.state = types.RouteUnresolved
		r.path = types.PathRecord{}
	}
	ws := r.detachLocked()
	r.mu.Unlock()

	if err != nil {
		logger.Debug("路径查询失败", "dest", r.dest, "status", res.Status, "err", err, "waiters", len(ws))
	}
	notifyAll(r.metrics, ws, path, err)
}

// detachLocked 摘下全部等待者
func (r *Route) detachLocked() []Waiter {
	ws := make([]Waiter, len(r.waiters))
	for i, w := range r.waiters {
		ws[i] = Waiter{Handler: w.handler, Context: w.ctx}
	}
	r.waiters = nil
	return ws
}

// Classify 将查询客户端的结果映射为路径记录或错误
//
//   - QuerySuccess              → 路径记录
//   - QueryCancelled/Superseded → types.ErrUnreachable
//   - QueryTimedOut             → types.ErrTimeout
//   - 其他                      → types.ErrQueryFailed（包装底层错误）
func Classify(res interfaces.QueryResult) (types.PathRecord, error) {
	switch res.Status {
	case types.QuerySuccess:
		return res.Path, nil
	case types.QueryCancelled, types.QuerySuperseded:
		return types.PathRecord{}, types.ErrUnreachable
	case types.QueryTimedOut:
		return types.PathRecord{}, types.ErrTimeout
	default:
		if res.Err != nil {
			return types.PathRecord{}, fmt.Errorf("%w: %w", types.ErrQueryFailed, res.Err)
		}
		return types.PathRecord{}, types.ErrQueryFailed
	}
}

// ============================================================================
//                              取消与驱逐
// ============================================================================

// Cancel 移除第一个匹配 (h, ctx) 的等待者
//
// 不影响未完成查询和其他等待者；移除最后一个等待者也不会取消查询。
func (r *Route) Cancel(h interfaces.ResolveHandler, ctx any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, w := range r.waiters {
		if sameWaiter(w, h, ctx) {
			r.waiters = append(r.waiters[:i], r.waiters[i+1:]...)
			return nil
		}
	}
	return types.ErrNotFound
}

// TakeWaiters 摘下全部等待者，用于迁移到替换的 Route
func (r *Route) TakeWaiters() []Waiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detachLocked()
}

// Shutdown 驱逐 Route
//
// 清除查询句柄并在存在时请求取消（不等待）；仍在排队的等待者
// 以 types.ErrUnreachable 同步通知。可重复调用。
func (r *Route) Shutdown() {
	r.mu.Lock()
	if r.retired {
		r.mu.Unlock()
		return
	}
	r.retired = true
	handle, had := r.handle, r.hasHandle
	r.hasHandle = false
	r.state = types.RouteUnresolved
	r.path = types.PathRecord{}
	ws := r.detachLocked()
	r.mu.Unlock()

	if had {
		r.client.CancelQuery(handle)
	}
	notifyAll(r.metrics, ws, types.PathRecord{}, types.ErrUnreachable)
}

// Release 释放一个引用
//
// 最后一个引用释放时 Route 终结。多余的 Release 被记录并忽略。
func (r *Route) Release() {
	n := r.refs.Add(-1)
	switch {
	case n > 0:
		return
	case n < 0:
		logger.Error("Route 引用计数下溢", "dest", r.dest, "refs", n)
		return
	}
	if r.freed.CompareAndSwap(false, true) && r.onFree != nil {
		r.onFree(r)
	}
}

// ============================================================================
//                              等待者
// ============================================================================

// Waiter 对外暴露的等待登记
type Waiter struct {
	Handler interfaces.ResolveHandler
	Context any
}

// WaiterCount 返回当前等待者数量
func (r *Route) WaiterCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

// sameWaiter 比较等待登记，不可比较的动态类型视为不相等
func sameWaiter(w waiter, h interfaces.ResolveHandler, ctx any) bool {
	return equalAny(w.handler, h) && equalAny(w.ctx, ctx)
}

func equalAny(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	// 按动态值检查：静态可比较的结构体可能在 any 字段中持有切片
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}

// Fail 以 err 通知一组等待者（锁外调用）
func Fail(ws []Waiter, err error) {
	notifyAll(nil, ws, types.PathRecord{}, err)
}

// notify 通知内部等待者（锁外调用）
func notify(m *metrics.Collector, ws []waiter, path types.PathRecord, err error) {
	for _, w := range ws {
		w.handler.OnPathResolved(w.ctx, path, err)
	}
	m.WaitersNotified(len(ws))
}

// notifyAll 通知等待者（锁外调用），按登记顺序
func notifyAll(m *metrics.Collector, ws []Waiter, path types.PathRecord, err error) {
	for _, w := range ws {
		w.Handler.OnPathResolved(w.Context, path, err)
	}
	m.WaitersNotified(len(ws))
}
