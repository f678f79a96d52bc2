// Package router 实现单个本地端口的路径解析器
//
// Router 持有按目的链路地址索引的 Route 映射，负责：
//   - 按需创建 Route（缓存模式）或直接合成路径记录（直连模式）
//   - 将解析/取消请求路由到对应 Route
//   - 目的身份变化时替换 Route 并迁移等待者
//   - 端口注销时驱逐全部 Route
//
// 映射锁只保护映射本身：Route 的解析和通知都在映射锁之外进行。
package router

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/btree"

	"github.com/dep2p/go-fabricat/internal/core/metrics"
	"github.com/dep2p/go-fabricat/internal/core/route"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
	"github.com/dep2p/go-fabricat/pkg/lib/log"
	"github.com/dep2p/go-fabricat/pkg/types"
)

var logger = log.Logger("core/router")

// btreeDegree 路由映射 B 树阶数
const btreeDegree = 16

// ============================================================================
//                              配置
// ============================================================================

// Config Router 创建参数
type Config struct {
	// Kind 传输类型，决定解析策略
	Kind types.TransportKind

	// Source 本端口的身份
	Source types.FabricID

	// PKey 本端口的分区键
	PKey uint16

	// Template 直连模式下合成路径记录的模板（SGID/DGID 会被覆盖）
	Template types.PathRecord

	// MaxRoutes 缓存路由上限，0 表示不限
	MaxRoutes int

	// Client 路径查询客户端（缓存模式必需）
	Client interfaces.PathQueryClient

	// Metrics 指标收集器（可选）
	Metrics *metrics.Collector
}

// ErrNoQueryClient 缓存模式缺少查询客户端
var ErrNoQueryClient = errors.New("router: cached transport requires a path query client")

// ============================================================================
//                              Router 实现
// ============================================================================

// routeItem B 树条目
type routeItem struct {
	key   types.LinkAddress
	route *route.Route
}

func lessRouteItem(a, b routeItem) bool {
	return a.key < b.key
}

// Router 单端口路径解析器
type Router struct {
	kind      types.TransportKind
	source    types.FabricID
	pkey      uint16
	template  types.PathRecord
	maxRoutes int
	client    interfaces.PathQueryClient
	metrics   *metrics.Collector

	mu     sync.Mutex
	routes *btree.BTreeG[routeItem]

	closed atomic.Bool
}

// New 创建 Router
func New(cfg Config) (*Router, error) {
	if cfg.Kind == types.TransportCached && cfg.Client == nil {
		return nil, ErrNoQueryClient
	}
	return &Router{
		kind:      cfg.Kind,
		source:    cfg.Source,
		pkey:      cfg.PKey,
		template:  cfg.Template,
		maxRoutes: cfg.MaxRoutes,
		client:    cfg.Client,
		metrics:   cfg.Metrics,
		routes:    btree.NewG(btreeDegree, lessRouteItem),
	}, nil
}

// Kind 返回传输类型
func (r *Router) Kind() types.TransportKind {
	return r.kind
}

// Source 返回本端口身份
func (r *Router) Source() types.FabricID {
	return r.source
}

// ============================================================================
//                              解析
// ============================================================================

// Resolve 解析到目的链路地址的路径
//
// 直连模式同步返回合成的路径记录。缓存模式下结果语义同 route.Route.Resolve：
// 同步成功、types.ErrPending（之后恰好一次回调）或同步错误（无回调）。
func (r *Router) Resolve(dst types.LinkAddress, h interfaces.ResolveHandler, ctx any) (types.PathRecord, error) {
	if r.closed.Load() {
		return types.PathRecord{}, types.ErrNotFound
	}
	if r.kind == types.TransportDirect {
		return r.synthesize(dst), nil
	}

	for {
		rt, err := r.lookupOrCreate(dst)
		if err != nil {
			return types.PathRecord{}, err
		}
		path, err := rt.Resolve(h, ctx)
		if errors.Is(err, route.ErrRetired) {
			// 映射条目在查找之后被替换或驱逐，重新查找
			if r.closed.Load() {
				return types.PathRecord{}, types.ErrNotFound
			}
			continue
		}
		return path, err
	}
}

// lookupOrCreate 查找 Route，不存在时创建
func (r *Router) lookupOrCreate(dst types.LinkAddress) (*route.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return nil, types.ErrNotFound
	}
	if item, ok := r.routes.Get(routeItem{key: dst}); ok {
		return item.route, nil
	}
	if r.maxRoutes > 0 && r.routes.Len() >= r.maxRoutes {
		logger.Warn("路由表已满", "source", r.source, "dest", dst, "max", r.maxRoutes)
		return nil, types.ErrInsufficientResources
	}

	// 首次见到的目的端：身份由本端口子网前缀和链路地址派生
	rt := r.newRoute(dst, types.NewFabricID(r.source.Prefix(), uint64(dst)))
	r.routes.ReplaceOrInsert(routeItem{key: dst, route: rt})
	return rt, nil
}

func (r *Router) newRoute(dst types.LinkAddress, destID types.FabricID) *route.Route {
	return route.New(route.Config{
		Dest: dst,
		Query: interfaces.PathQuery{
			Source: r.source,
			Dest:   destID,
			PKey:   r.pkey,
		},
		Client:  r.client,
		Metrics: r.metrics,
	})
}

// ============================================================================
//                              取消
// ============================================================================

// Cancel 取消到 dst 的一次等待
func (r *Router) Cancel(dst types.LinkAddress, h interfaces.ResolveHandler, ctx any) error {
	if r.kind == types.TransportDirect {
		// 直连模式没有等待者
		return types.ErrNotFound
	}

	r.mu.Lock()
	item, ok := r.routes.Get(routeItem{key: dst})
	r.mu.Unlock()
	if !ok {
		return types.ErrNotFound
	}
	return item.route.Cancel(h, ctx)
}

// ============================================================================
//                              更新
// ============================================================================

// Update 将 dst 的目的身份替换为 destID
//
// 无论新身份是否与现有身份相同都会替换：旧 Route 被驱逐，其等待者迁移到
// 新 Route 并立即发起新查询。dst 尚无条目时只插入，不发起查询。
// 直连模式下为空操作。
func (r *Router) Update(dst types.LinkAddress, destID types.FabricID) error {
	if r.kind == types.TransportDirect {
		return nil
	}

	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		return types.ErrNotFound
	}
	_, exists := r.routes.Get(routeItem{key: dst})
	if !exists && r.maxRoutes > 0 && r.routes.Len() >= r.maxRoutes {
		r.mu.Unlock()
		return types.ErrInsufficientResources
	}
	next := r.newRoute(dst, destID)
	old, replaced := r.routes.ReplaceOrInsert(routeItem{key: dst, route: next})
	r.mu.Unlock()

	if !replaced {
		logger.Debug("插入路由", "dest", dst, "dgid", destID)
		return nil
	}

	waiters := old.route.TakeWaiters()
	old.route.Shutdown()
	old.route.Release()

	logger.Debug("替换路由", "dest", dst, "old", old.route.DestID(), "new", destID, "migrated", len(waiters))
	r.restart(dst, next, waiters)
	return nil
}

// restart 将迁移的等待者交给 rt 并重新发起解析
//
// rt 在此期间又被替换时，等待者转交给当前映射条目。
func (r *Router) restart(dst types.LinkAddress, rt *route.Route, waiters []route.Waiter) {
	for {
		err := rt.Restart(waiters)
		if err == nil {
			return
		}
		if !errors.Is(err, route.ErrRetired) {
			// 迁移的等待者已收到失败通知，映射条目保留在 Unresolved
			logger.Warn("替换路由后提交查询失败", "dest", dst, "err", err)
			return
		}
		if rt, err = r.lookupOrCreate(dst); err != nil {
			route.Fail(waiters, types.ErrUnreachable)
			return
		}
	}
}

// ============================================================================
//                              驱逐
// ============================================================================

// Reset 驱逐全部 Route
//
// 未完成查询被请求取消，仍在等待的调用者以 types.ErrUnreachable 通知。
func (r *Router) Reset() {
	r.mu.Lock()
	var evicted []*route.Route
	for {
		item, ok := r.routes.DeleteMin()
		if !ok {
			break
		}
		evicted = append(evicted, item.route)
	}
	r.mu.Unlock()

	for _, rt := range evicted {
		rt.Shutdown()
		rt.Release()
	}
	if len(evicted) > 0 {
		logger.Debug("已驱逐路由", "source", r.source, "count", len(evicted))
	}
}

// Shutdown 关闭 Router 并驱逐全部 Route
//
// 关闭后 Resolve/Update 返回 types.ErrNotFound。可重复调用。
func (r *Router) Shutdown() {
	r.mu.Lock()
	r.closed.Store(true)
	r.mu.Unlock()
	r.Reset()
}

// Closed 检查 Router 是否已关闭
func (r *Router) Closed() bool {
	return r.closed.Load()
}

// ============================================================================
//                              直连模式
// ============================================================================

// synthesize 合成直连模式路径记录
//
// 直连传输的目的身份是链路地址的 EUI-64 链路本地地址，无需查询。
func (r *Router) synthesize(dst types.LinkAddress) types.PathRecord {
	path := r.template
	path.SGID = r.source
	path.DGID = types.NewFabricID(types.LinkLocalPrefix, types.EUI64(dst))
	path.PKey = r.pkey
	return path
}

// ============================================================================
//                              诊断视图
// ============================================================================

// RouteInfo Route 快照
type RouteInfo struct {
	Dest    types.LinkAddress `json:"dest"`
	DestID  types.FabricID    `json:"dgid"`
	State   string            `json:"state"`
	Waiters int               `json:"waiters"`
}

// Routes 按链路地址升序返回路由快照
func (r *Router) Routes() []RouteInfo {
	r.mu.Lock()
	rts := make([]*route.Route, 0, r.routes.Len())
	r.routes.Ascend(func(item routeItem) bool {
		rts = append(rts, item.route)
		return true
	})
	r.mu.Unlock()

	out := make([]RouteInfo, len(rts))
	for i, rt := range rts {
		out[i] = RouteInfo{
			Dest:    rt.Dest(),
			DestID:  rt.DestID(),
			State:   rt.State().String(),
			Waiters: rt.WaiterCount(),
		}
	}
	return out
}

// Len 返回缓存的路由数
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.routes.Len()
}

// lookup 返回 dst 的当前 Route（测试用）
func (r *Router) lookup(dst types.LinkAddress) *route.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.routes.Get(routeItem{key: dst})
	if !ok {
		return nil
	}
	return item.route
}
