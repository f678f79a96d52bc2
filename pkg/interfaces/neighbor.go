package interfaces

import (
	"context"
	"net/netip"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// NeighborResolver 邻居解析服务
//
// 将本地/远端网络地址对映射为远端链路地址。调用可能阻塞，
// 只能在允许阻塞的上下文中调用。
//
// 错误约定：
//   - types.ErrIncomplete: 解析尚未完成，调用方应延迟后重试
//   - types.ErrUnreachable: 远端已确认不可达
//   - 其他错误: 解析失败
type NeighborResolver interface {
	ResolveNeighbor(ctx context.Context, local, remote netip.Addr) (types.LinkAddress, error)
}
