//go:build linux

package neighbor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// ============================================================================
//                              NetlinkResolver
// ============================================================================

// 可直接使用的 NUD 状态
const usableStates = netlink.NUD_REACHABLE | netlink.NUD_STALE | netlink.NUD_DELAY |
	netlink.NUD_PROBE | netlink.NUD_PERMANENT | netlink.NUD_NOARP

// NetlinkResolver 基于内核邻居表的解析器
//
// 查找到远端（或其网关）的出接口，在该接口的邻居表中查找条目：
//   - 可用状态：返回链路地址
//   - NUD_FAILED：types.ErrUnreachable
//   - NUD_INCOMPLETE 或不存在：插入未完成条目触发内核 ARP/ND，
//     返回 types.ErrIncomplete
type NetlinkResolver struct {
	handle    *netlink.Handle
	closeOnce sync.Once
}

// NewNetlinkResolver 创建内核邻居表解析器
func NewNetlinkResolver() (*NetlinkResolver, error) {
	h, err := netlink.NewHandle(unix.NETLINK_ROUTE)
	if err != nil {
		return nil, fmt.Errorf("netlink handle: %w", err)
	}
	return &NetlinkResolver{handle: h}, nil
}

// Close 释放 netlink 句柄
func (r *NetlinkResolver) Close() error {
	r.closeOnce.Do(r.handle.Close)
	return nil
}

// ResolveNeighbor 解析邻居（阻塞调用）
func (r *NetlinkResolver) ResolveNeighbor(ctx context.Context, local, remote netip.Addr) (types.LinkAddress, error) {
	local, remote, err := types.CheckAddressPair(local, remote)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	family := unix.AF_INET6
	if remote.Is4() {
		family = unix.AF_INET
	}

	routes, err := r.handle.RouteGet(net.IP(remote.AsSlice()))
	if err != nil {
		return 0, fmt.Errorf("route lookup for %s: %w", remote, err)
	}
	if len(routes) == 0 {
		return 0, types.ErrUnreachable
	}
	rt := routes[0]

	nextHop := remote
	if gw, ok := netip.AddrFromSlice(rt.Gw); ok && !gw.IsUnspecified() {
		nextHop = gw.Unmap()
	}
	if src, ok := netip.AddrFromSlice(rt.Src); ok && src.Unmap() != local {
		logger.Debug("出接口源地址与本地地址不同", "local", local, "src", src, "remote", remote)
	}

	neighs, err := r.handle.NeighList(rt.LinkIndex, family)
	if err != nil {
		return 0, fmt.Errorf("listing neighbors on link %d: %w", rt.LinkIndex, err)
	}
	for _, n := range neighs {
		ip, ok := netip.AddrFromSlice(n.IP)
		if !ok || ip.Unmap() != nextHop {
			continue
		}
		switch {
		case n.State&usableStates != 0 && len(n.HardwareAddr) > 0:
			return types.LinkAddressFromHardware(n.HardwareAddr)
		case n.State&netlink.NUD_FAILED != 0:
			return 0, types.ErrUnreachable
		default:
			return 0, types.ErrIncomplete
		}
	}

	// 条目不存在：插入未完成条目，由内核发起 ARP/ND
	neigh := &netlink.Neigh{
		LinkIndex: rt.LinkIndex,
		Family:    family,
		State:     netlink.NUD_INCOMPLETE,
		IP:        net.IP(nextHop.AsSlice()),
	}
	if err := r.handle.NeighAdd(neigh); err != nil && !errors.Is(err, unix.EEXIST) {
		logger.Debug("触发邻居解析失败", "next_hop", nextHop, "link", rt.LinkIndex, "err", err)
	}
	return 0, types.ErrIncomplete
}
