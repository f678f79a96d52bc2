// Package registry 实现本地 fabric 端口注册表
//
// Registry 是"存在哪些本地端口"与"哪些本地 IP 地址属于哪个端口"的
// 唯一事实来源。
//
// # 锁分层
//
//   - mu（读写锁）：串行化注册/更新/注销与地址表刷新，可能在阻塞调用
//     （地址表快照）期间持有。地址到端口的转换和枚举持有读锁。
//   - fastMu（互斥锁）：只保护端口数组的按链路地址扫描。快速路径
//     （ResolveByLinkAddress、PortRecordByLinkAddress）只取 fastMu，
//     永远不会排在阻塞的注册表变更之后。
//
// 写者先取 mu 再取 fastMu，数组变更同时持有两者；因此任一把锁都足以
// 安全读取端口数组。
//
// 获取顺序：mu → fastMu → Router.mu → Route.mu，回调从不在持锁时调用。
package registry

import (
	"context"
	"io"
	"iter"
	"net/netip"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/internal/core/metrics"
	"github.com/dep2p/go-fabricat/internal/core/router"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
	"github.com/dep2p/go-fabricat/pkg/lib/log"
	"github.com/dep2p/go-fabricat/pkg/types"
)

var logger = log.Logger("core/registry")

// ============================================================================
//                              端口条目
// ============================================================================

// Registration 端口注册参数
type Registration struct {
	// LinkAddress 本地端口链路地址，注册后不可变
	LinkAddress types.LinkAddress

	// InterfaceID 本地接口标识，可通过 UpdateRegistration 更新
	InterfaceID uint64

	// Owner 注册该端口的上层驱动
	Owner types.OwnerID

	// Record fabric 端口记录，原样返回给查询
	Record types.PortRecord

	// Kind 传输类型
	Kind types.TransportKind

	// SubnetPrefix 端口所在子网前缀，0 表示链路本地前缀
	SubnetPrefix uint64

	// Template 直连模式路径记录模板
	Template types.PathRecord
}

// portEntry 端口表条目
type portEntry struct {
	linkAddr types.LinkAddress
	ifaceID  uint64
	owner    types.OwnerID
	record   types.PortRecord
	router   *router.Router
}

// PortInfo 端口快照
type PortInfo struct {
	Index       int                 `json:"index"`
	LinkAddress types.LinkAddress   `json:"link_address"`
	InterfaceID uint64              `json:"interface_id"`
	Owner       types.OwnerID       `json:"owner"`
	Record      types.PortRecord    `json:"record"`
	Kind        types.TransportKind `json:"kind"`
	Source      types.FabricID      `json:"gid"`
	Routes      int                 `json:"routes"`
}

func (e *portEntry) info(index int) PortInfo {
	return PortInfo{
		Index:       index,
		LinkAddress: e.linkAddr,
		InterfaceID: e.ifaceID,
		Owner:       e.owner,
		Record:      e.record,
		Kind:        e.router.Kind(),
		Source:      e.router.Source(),
	}
}

// ============================================================================
//                              Registry 实现
// ============================================================================

// Registry 端口注册表
type Registry struct {
	cfg      config.RegistryConfig
	provider interfaces.AddressTableProvider
	client   interfaces.PathQueryClient
	metrics  *metrics.Collector

	mu    sync.RWMutex
	addrs []types.LocalAddress

	fastMu sync.Mutex
	ports  []*portEntry

	limiter *rate.Limiter
	sub     io.Closer
	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	closed  atomic.Bool
}

// New 创建注册表并立即获取一次地址表快照
//
// 首次快照失败时返回错误。client 可以为 nil，此时只能注册直连端口。
func New(ctx context.Context, cfg config.RegistryConfig, provider interfaces.AddressTableProvider,
	client interfaces.PathQueryClient, m *metrics.Collector) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Registry{
		cfg:      cfg,
		provider: provider,
		client:   client,
		metrics:  m,
		ports:    make([]*portEntry, 0, cfg.MaxPorts),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RefreshRate), cfg.RefreshBurst),
	}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// ============================================================================
//                              注册
// ============================================================================

// Register 注册本地端口
//
// 返回的 Router 是端口的路由句柄，用于后续解析/取消以及 Deregister。
func (r *Registry) Register(reg Registration) (*router.Router, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return nil, types.ErrClosed
	}
	if r.findLocked(reg.LinkAddress) != nil {
		return nil, types.ErrAlreadyRegistered
	}
	if len(r.ports) >= r.cfg.MaxPorts {
		logger.Warn("端口表已满", "port", reg.LinkAddress, "max", r.cfg.MaxPorts)
		return nil, types.ErrCapacityExceeded
	}

	prefix := reg.SubnetPrefix
	if prefix == 0 {
		prefix = types.LinkLocalPrefix
	}
	rt, err := router.New(router.Config{
		Kind:      reg.Kind,
		Source:    types.NewFabricID(prefix, reg.Record.PortGUID),
		PKey:      reg.Record.PKey,
		Template:  reg.Template,
		MaxRoutes: r.cfg.MaxRoutesPerPort,
		Client:    r.client,
		Metrics:   r.metrics,
	})
	if err != nil {
		return nil, err
	}

	entry := &portEntry{
		linkAddr: reg.LinkAddress,
		ifaceID:  reg.InterfaceID,
		owner:    reg.Owner,
		record:   reg.Record,
		router:   rt,
	}

	r.fastMu.Lock()
	r.ports = append(r.ports, entry)
	n := len(r.ports)
	r.fastMu.Unlock()

	r.metrics.SetPorts(n)
	logger.Info("端口已注册", "port", reg.LinkAddress, "iface", reg.InterfaceID,
		"owner", reg.Owner, "kind", reg.Kind, "record", reg.Record)
	return rt, nil
}

// UpdateRegistration 原地更新端口的本地接口标识
//
// 不影响 Router 及其缓存的 Route。
func (r *Registry) UpdateRegistration(linkAddr types.LinkAddress, ifaceID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.findLocked(linkAddr)
	if e == nil {
		return types.ErrNotFound
	}

	r.fastMu.Lock()
	old := e.ifaceID
	e.ifaceID = ifaceID
	r.fastMu.Unlock()

	logger.Info("端口接口已更新", "port", linkAddr, "old", old, "new", ifaceID)
	return nil
}

// Deregister 注销端口
//
// 按 Router 引用线性匹配（下标可能已因压缩而变化），可重复调用。
// 端口从表中移除后关闭其 Router：请求取消全部未完成查询并释放全部 Route。
func (r *Registry) Deregister(h *router.Router) {
	if h == nil {
		return
	}

	r.mu.Lock()
	idx := -1
	for i, e := range r.ports {
		if e.router == h {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return
	}

	r.fastMu.Lock()
	e := r.ports[idx]
	last := len(r.ports) - 1
	r.ports[idx] = r.ports[last]
	r.ports[last] = nil
	r.ports = r.ports[:last]
	n := len(r.ports)
	r.fastMu.Unlock()
	r.mu.Unlock()

	h.Shutdown()
	r.metrics.SetPorts(n)
	logger.Info("端口已注销", "port", e.linkAddr, "owner", e.owner)
}

// findLocked 按链路地址查找端口，调用方持有 mu 或 fastMu
func (r *Registry) findLocked(linkAddr types.LinkAddress) *portEntry {
	for _, e := range r.ports {
		if e.linkAddr == linkAddr {
			return e
		}
	}
	return nil
}

// ============================================================================
//                              快速路径（仅 fastMu）
// ============================================================================

// routerFor 按链路地址查找端口的 Router
func (r *Registry) routerFor(linkAddr types.LinkAddress) (*router.Router, error) {
	r.fastMu.Lock()
	defer r.fastMu.Unlock()

	e := r.findLocked(linkAddr)
	if e == nil {
		return nil, types.ErrNotFound
	}
	return e.router, nil
}

// Router 返回本地端口的 Router
func (r *Registry) Router(local types.LinkAddress) (*router.Router, error) {
	return r.routerFor(local)
}

// ResolveByLinkAddress 解析从本地端口到远端链路地址的路径
//
// 结果语义同 router.Router.Resolve。不取阻塞锁，可在快速路径上调用。
func (r *Registry) ResolveByLinkAddress(local, remote types.LinkAddress,
	h interfaces.ResolveHandler, ctx any) (types.PathRecord, error) {
	rt, err := r.routerFor(local)
	if err != nil {
		return types.PathRecord{}, err
	}
	return rt.Resolve(remote, h, ctx)
}

// CancelByLinkAddress 取消一次等待
func (r *Registry) CancelByLinkAddress(local, remote types.LinkAddress,
	h interfaces.ResolveHandler, ctx any) error {
	rt, err := r.routerFor(local)
	if err != nil {
		return err
	}
	return rt.Cancel(remote, h, ctx)
}

// UpdateRoute 更新远端的目的身份，重新发起解析
func (r *Registry) UpdateRoute(local, remote types.LinkAddress, destID types.FabricID) error {
	rt, err := r.routerFor(local)
	if err != nil {
		return err
	}
	return rt.Update(remote, destID)
}

// ResetPort 驱逐端口的全部缓存路由（链路断开），端口保持注册
func (r *Registry) ResetPort(local types.LinkAddress) error {
	rt, err := r.routerFor(local)
	if err != nil {
		return err
	}
	rt.Reset()
	logger.Info("端口路由已重置", "port", local)
	return nil
}

// PortRecordByLinkAddress 按链路地址查询端口记录
//
// owner 非 nil 时要求端口属于该驱动，否则返回 types.ErrAddressMismatch。
func (r *Registry) PortRecordByLinkAddress(linkAddr types.LinkAddress, owner *types.OwnerID) (types.PortRecord, error) {
	r.fastMu.Lock()
	defer r.fastMu.Unlock()

	e := r.findLocked(linkAddr)
	if e == nil {
		return types.PortRecord{}, types.ErrNotFound
	}
	if owner != nil && *owner != e.owner {
		return types.PortRecord{}, types.ErrAddressMismatch
	}
	return e.record, nil
}

// ============================================================================
//                              地址转换（mu 读锁）
// ============================================================================

// ResolveLocalAddress 找到拥有本地 IP 地址的端口
//
// 先在地址表快照中查找拥有 local 的接口，再在已注册端口中查找该接口。
// remote 只用于地址族检查。
func (r *Registry) ResolveLocalAddress(local, remote netip.Addr) (PortInfo, error) {
	local, _, err := types.CheckAddressPair(local, remote)
	if err != nil {
		return PortInfo{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, e := r.portForIPLocked(local)
	if e == nil {
		return PortInfo{}, types.ErrNotFound
	}
	return e.info(idx), nil
}

// PortRecordByLocalIP 按本地 IP 地址查询端口记录
func (r *Registry) PortRecordByLocalIP(ip netip.Addr, owner *types.OwnerID) (types.PortRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, e := r.portForIPLocked(ip.Unmap())
	if e == nil {
		return types.PortRecord{}, types.ErrNotFound
	}
	if owner != nil && *owner != e.owner {
		return types.PortRecord{}, types.ErrAddressMismatch
	}
	return e.record, nil
}

// portForIPLocked 调用方持有 mu
func (r *Registry) portForIPLocked(ip netip.Addr) (int, *portEntry) {
	for _, a := range r.addrs {
		if a.Addr != ip {
			continue
		}
		for i, e := range r.ports {
			if e.ifaceID == a.InterfaceID {
				return i, e
			}
		}
		return -1, nil
	}
	return -1, nil
}

// Enumerate 枚举属于匹配端口的本地地址
//
// 返回的序列可重复遍历：每次遍历都在读锁下重新计算，释放锁后再产出，
// 因此遍历期间的回调可以调用注册表的任何方法。
func (r *Registry) Enumerate(filter types.PortFilter) iter.Seq2[netip.Addr, types.PortRecord] {
	return func(yield func(netip.Addr, types.PortRecord) bool) {
		type match struct {
			addr netip.Addr
			rec  types.PortRecord
		}

		r.mu.RLock()
		var matches []match
		for _, a := range r.addrs {
			for _, e := range r.ports {
				if e.ifaceID != a.InterfaceID || !filter.Match(e.owner, e.record) {
					continue
				}
				matches = append(matches, match{addr: a.Addr, rec: e.record})
				break
			}
		}
		r.mu.RUnlock()

		for _, m := range matches {
			if !yield(m.addr, m.rec) {
				return
			}
		}
	}
}

// ============================================================================
//                              诊断视图
// ============================================================================

// Ports 返回端口快照
func (r *Registry) Ports() []PortInfo {
	r.mu.RLock()
	entries := make([]*portEntry, len(r.ports))
	copy(entries, r.ports)
	out := make([]PortInfo, len(entries))
	for i, e := range entries {
		out[i] = e.info(i)
	}
	r.mu.RUnlock()

	for i, e := range entries {
		out[i].Routes = e.router.Len()
	}
	return out
}

// Addresses 返回地址表快照副本
func (r *Registry) Addresses() []types.LocalAddress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]types.LocalAddress(nil), r.addrs...)
}

// Capacity 返回端口表容量
func (r *Registry) Capacity() int {
	return r.cfg.MaxPorts
}

// ============================================================================
//                              生命周期
// ============================================================================

// Close 关闭注册表
//
// 取消地址表订阅并关闭全部端口的 Router。可重复调用。
func (r *Registry) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if r.cancel != nil {
		r.cancel()
	}
	if r.sub != nil {
		err = r.sub.Close()
	}

	r.mu.Lock()
	r.fastMu.Lock()
	ports := r.ports
	r.ports = nil
	r.fastMu.Unlock()
	r.mu.Unlock()

	for _, e := range ports {
		e.router.Shutdown()
	}

	r.metrics.SetPorts(0)
	logger.Info("注册表已关闭", "ports", len(ports))
	return err
}
