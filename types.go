package fabricat

import (
	"github.com/dep2p/go-fabricat/internal/core/registry"
	"github.com/dep2p/go-fabricat/internal/core/router"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
	"github.com/dep2p/go-fabricat/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              公共类型
// ════════════════════════════════════════════════════════════════════════════

type (
	// Registration 端口注册参数
	Registration = registry.Registration

	// PortInfo 端口快照
	PortInfo = registry.PortInfo

	// RouteInfo 路由快照
	RouteInfo = router.RouteInfo

	// ResolveHandler 解析结果接收者
	ResolveHandler = interfaces.ResolveHandler

	// PathRecord 路径记录
	PathRecord = types.PathRecord

	// PortRecord 端口记录
	PortRecord = types.PortRecord

	// PortFilter 端口过滤条件
	PortFilter = types.PortFilter

	// LinkAddress 链路层地址
	LinkAddress = types.LinkAddress

	// FabricID 网络层身份（GID）
	FabricID = types.FabricID

	// OwnerID 注册驱动标识
	OwnerID = types.OwnerID
)

const (
	// TransportCached 目的身份需经路径查询解析
	TransportCached = types.TransportCached

	// TransportDirect 目的身份由链路地址本地推导
	TransportDirect = types.TransportDirect
)

// HandlerFunc 将函数包装为 ResolveHandler
var HandlerFunc = interfaces.HandlerFunc

// ════════════════════════════════════════════════════════════════════════════
//                              RoutingHandle
// ════════════════════════════════════════════════════════════════════════════

// RoutingHandle 注册端口返回的路由句柄
//
// 句柄绑定端口的 Router，操作不经过端口表查找。
// 端口注销后，句柄上的操作返回 ErrNotFound。
type RoutingHandle struct {
	local LinkAddress
	rt    *router.Router
}

// LinkAddress 返回本地端口链路地址
func (h *RoutingHandle) LinkAddress() LinkAddress {
	return h.local
}

// Resolve 解析到远端链路地址的路径
func (h *RoutingHandle) Resolve(remote LinkAddress, handler ResolveHandler, ctx any) (PathRecord, error) {
	return h.rt.Resolve(remote, handler, ctx)
}

// Cancel 取消一次等待登记
func (h *RoutingHandle) Cancel(remote LinkAddress, handler ResolveHandler, ctx any) error {
	return h.rt.Cancel(remote, handler, ctx)
}

// Update 通知远端 fabric 身份变化并重新解析
func (h *RoutingHandle) Update(remote LinkAddress, dest FabricID) error {
	return h.rt.Update(remote, dest)
}

// Routes 返回路由缓存快照
func (h *RoutingHandle) Routes() []RouteInfo {
	return h.rt.Routes()
}
