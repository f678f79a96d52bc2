package fabricat

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/netip"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-fabricat/internal/core/metrics"
	"github.com/dep2p/go-fabricat/internal/core/query"
	"github.com/dep2p/go-fabricat/internal/core/registry"
	"github.com/dep2p/go-fabricat/internal/debug/introspect"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
	"github.com/dep2p/go-fabricat/pkg/lib/log"
	"github.com/dep2p/go-fabricat/pkg/types"
)

var logger = log.Logger("fabricat")

const (
	// startTimeout Fx App 启动超时
	startTimeout = 30 * time.Second

	// stopTimeout Fx App 停止超时
	stopTimeout = 10 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Translator
// ════════════════════════════════════════════════════════════════════════════

// Translator fabric 地址解析门面
//
// 组合端口注册表、邻居解析与路径查询客户端，对上层驱动暴露
// 注册、解析、取消与查询操作。
type Translator struct {
	mu      sync.Mutex
	app     *fx.App
	started bool
	closed  bool

	// 由 Fx 注入
	registry   *registry.Registry
	neighbor   interfaces.NeighborResolver
	client     interfaces.PathQueryClient
	loopback   *query.LoopbackClient
	metrics    *metrics.Collector
	gatherer   prometheus.Gatherer
	introspect *introspect.Server
	closers    []io.Closer
}

// New 创建 Translator
//
// 创建时即获取一次本地地址表；失败时返回错误。创建后即可注册端口和解析，
// 调用 Start 之后才会跟随地址表变化刷新。
func New(opts ...Option) (*Translator, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	t := &Translator{}
	app, err := buildFxApp(o, t)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	t.app = app
	return t, nil
}

// Start 快捷启动函数，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Translator, error) {
	t, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := t.Start(ctx); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("start translator: %w", err)
	}
	return t, nil
}

// Start 启动地址表订阅与诊断服务
func (t *Translator) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := t.app.Start(startCtx); err != nil {
		logger.Error("启动失败", "error", err)
		return fmt.Errorf("start: %w", err)
	}

	t.started = true
	logger.Info("Translator 已启动", "ports", t.registry.Capacity())
	return nil
}

// Close 关闭 Translator
//
// 注销全部端口（取消未完成查询，排队的等待者以 ErrUnreachable 通知），
// 停止地址表订阅与诊断服务。可重复调用。
func (t *Translator) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	started := t.started
	t.mu.Unlock()

	var errs error
	if started {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		errs = multierr.Append(errs, t.app.Stop(ctx))
	} else {
		// 未启动时 OnStop 钩子不会运行，直接关闭已创建的组件
		errs = multierr.Append(errs, t.registry.Close())
		if t.loopback != nil {
			errs = multierr.Append(errs, t.loopback.Close())
		}
		for i := len(t.closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, t.closers[i].Close())
		}
	}

	logger.Info("Translator 已关闭")
	return errs
}

// ════════════════════════════════════════════════════════════════════════════
//                              端口生命周期
// ════════════════════════════════════════════════════════════════════════════

// Register 注册本地端口
//
// 失败：ErrAlreadyRegistered、ErrCapacityExceeded，
// 缓存模式且未配置查询客户端时返回配置错误。
func (t *Translator) Register(reg Registration) (*RoutingHandle, error) {
	rt, err := t.registry.Register(reg)
	if err != nil {
		return nil, err
	}
	return &RoutingHandle{local: reg.LinkAddress, rt: rt}, nil
}

// UpdateRegistration 更新端口的本地接口标识
func (t *Translator) UpdateRegistration(linkAddr LinkAddress, ifaceID uint64) error {
	return t.registry.UpdateRegistration(linkAddr, ifaceID)
}

// Deregister 注销端口，可重复调用
func (t *Translator) Deregister(h *RoutingHandle) {
	if h == nil {
		return
	}
	t.registry.Deregister(h.rt)
}

// ════════════════════════════════════════════════════════════════════════════
//                              解析
// ════════════════════════════════════════════════════════════════════════════

// ResolveByIP 解析本地/远端 IP 地址对的路径
//
// 依次：按本地地址表定位本地端口，经邻居解析得到远端链路地址
// （ErrIncomplete 时按配置重试），再交给端口的 Router。
// 邻居解析可能阻塞，ctx 控制等待。
//
// 返回语义同 ResolveByLinkAddress。
func (t *Translator) ResolveByIP(ctx context.Context, local, remote netip.Addr,
	h ResolveHandler, cbctx any) (PathRecord, error) {
	port, remoteLA, err := t.locate(ctx, local, remote)
	if err != nil {
		return PathRecord{}, err
	}
	return t.registry.ResolveByLinkAddress(port, remoteLA, h, cbctx)
}

// ResolveByLinkAddress 解析本地端口到远端链路地址的路径
//
// 返回：
//   - (path, nil): 缓存命中或直连模式，同步成功
//   - (_, ErrPending): 已排队，之后 h.OnPathResolved 恰好调用一次
//   - (_, err): 同步失败，不会回调
//
// 不获取可能阻塞的锁，可在发送快路径上调用。
func (t *Translator) ResolveByLinkAddress(local, remote LinkAddress, h ResolveHandler, cbctx any) (PathRecord, error) {
	return t.registry.ResolveByLinkAddress(local, remote, h, cbctx)
}

// CancelByIP 取消一次按 IP 发起的等待
func (t *Translator) CancelByIP(ctx context.Context, local, remote netip.Addr, h ResolveHandler, cbctx any) error {
	port, remoteLA, err := t.locate(ctx, local, remote)
	if err != nil {
		return err
	}
	return t.registry.CancelByLinkAddress(port, remoteLA, h, cbctx)
}

// CancelByLinkAddress 取消一次等待登记，未找到时返回 ErrNotFound
func (t *Translator) CancelByLinkAddress(local, remote LinkAddress, h ResolveHandler, cbctx any) error {
	return t.registry.CancelByLinkAddress(local, remote, h, cbctx)
}

// UpdateRoute 通知远端 fabric 身份变化
//
// 缓存模式下替换该目的端的 Route 并立即重新查询，排队的等待者迁移到新 Route。
func (t *Translator) UpdateRoute(local, remote LinkAddress, dest FabricID) error {
	return t.registry.UpdateRoute(local, remote, dest)
}

// ResetPort 清空端口的路由缓存（链路断开）
func (t *Translator) ResetPort(local LinkAddress) error {
	return t.registry.ResetPort(local)
}

// locate 定位本地端口与远端链路地址
func (t *Translator) locate(ctx context.Context, local, remote netip.Addr) (LinkAddress, LinkAddress, error) {
	port, err := t.registry.ResolveLocalAddress(local, remote)
	if err != nil {
		return 0, 0, err
	}
	remoteLA, err := t.neighbor.ResolveNeighbor(ctx, local.Unmap(), remote.Unmap())
	if err != nil {
		logger.Debug("邻居解析失败", "local", local, "remote", remote, "err", err)
		return 0, 0, fmt.Errorf("resolve neighbor %s: %w", remote, err)
	}
	return port.LinkAddress, remoteLA, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              查询
// ════════════════════════════════════════════════════════════════════════════

// PortQuery 端口记录查询条件
//
// IP 有效时按本地 IP 查询，否则按链路地址查询。Owner 非空时
// 端口必须属于该驱动，否则返回 ErrAddressMismatch。
type PortQuery struct {
	LinkAddress LinkAddress
	IP          netip.Addr
	Owner       *OwnerID
}

// PortRecord 查询端口记录
func (t *Translator) PortRecord(q PortQuery) (PortRecord, error) {
	if q.IP.IsValid() {
		return t.registry.PortRecordByLocalIP(q.IP, q.Owner)
	}
	return t.registry.PortRecordByLinkAddress(q.LinkAddress, q.Owner)
}

// EnumerateAddresses 列出属于匹配端口的本地 IP 地址
//
// 每次迭代重新读取当前快照。
func (t *Translator) EnumerateAddresses(filter PortFilter) iter.Seq[netip.Addr] {
	return func(yield func(netip.Addr) bool) {
		for addr := range t.registry.Enumerate(filter) {
			if !yield(addr) {
				return
			}
		}
	}
}

// Enumerate 列出匹配端口的 (本地地址, 端口记录)
func (t *Translator) Enumerate(filter PortFilter) iter.Seq2[netip.Addr, PortRecord] {
	return t.registry.Enumerate(filter)
}

// ════════════════════════════════════════════════════════════════════════════
//                              诊断
// ════════════════════════════════════════════════════════════════════════════

// Ports 返回端口快照
func (t *Translator) Ports() []PortInfo {
	return t.registry.Ports()
}

// Routes 返回本地端口的路由缓存快照
func (t *Translator) Routes(local LinkAddress) ([]RouteInfo, error) {
	rt, err := t.registry.Router(local)
	if err != nil {
		return nil, err
	}
	return rt.Routes(), nil
}

// Addresses 返回本地地址表快照
func (t *Translator) Addresses() []types.LocalAddress {
	return t.registry.Addresses()
}

// Refresh 立即刷新本地地址表
func (t *Translator) Refresh(ctx context.Context) error {
	return t.registry.Refresh(ctx)
}

// Gatherer 返回指标来源，指标禁用或注入的 Registerer 不可读取时为 nil
func (t *Translator) Gatherer() prometheus.Gatherer {
	return t.gatherer
}

// Loopback 返回进程内回环查询客户端，未启用时为 nil
func (t *Translator) Loopback() *query.LoopbackClient {
	return t.loopback
}

// IntrospectAddr 返回诊断服务监听地址，未启用时为空
func (t *Translator) IntrospectAddr() string {
	if t.introspect == nil {
		return ""
	}
	return t.introspect.Addr()
}
