//go:build !linux

package neighbor

import (
	"context"
	"errors"
	"net/netip"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// ErrUnsupported 当前平台不支持内核邻居表
var ErrUnsupported = errors.New("neighbor: netlink resolver requires linux")

// NetlinkResolver 非 Linux 平台占位
type NetlinkResolver struct{}

// NewNetlinkResolver 在非 Linux 平台返回 ErrUnsupported
func NewNetlinkResolver() (*NetlinkResolver, error) {
	return nil, ErrUnsupported
}

// Close 无操作
func (r *NetlinkResolver) Close() error { return nil }

// ResolveNeighbor 总是返回 ErrUnsupported
func (r *NetlinkResolver) ResolveNeighbor(context.Context, netip.Addr, netip.Addr) (types.LinkAddress, error) {
	return 0, ErrUnsupported
}
