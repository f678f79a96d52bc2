package addrtable

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// Source 地址表来源函数
type Source func(ctx context.Context) ([]types.LocalAddress, error)

// InterfaceSource 基于 net.Interfaces 的跨平台地址来源
//
// 接口标识取接口索引。跳过未启用的接口；includeLoopback 为 false 时跳过回环接口。
func InterfaceSource(includeLoopback bool) Source {
	return func(_ context.Context) ([]types.LocalAddress, error) {
		ifaces, err := net.Interfaces()
		if err != nil {
			return nil, err
		}

		var out []types.LocalAddress
		for _, iface := range ifaces {
			if iface.Flags&net.FlagUp == 0 {
				continue
			}
			if iface.Flags&net.FlagLoopback != 0 && !includeLoopback {
				continue
			}
			addrs, err := iface.Addrs()
			if err != nil {
				continue
			}
			for _, a := range addrs {
				ipnet, ok := a.(*net.IPNet)
				if !ok {
					continue
				}
				ip, ok := netip.AddrFromSlice(ipnet.IP)
				if !ok || !unicast(ip.Unmap()) {
					continue
				}
				out = append(out, types.LocalAddress{
					Addr:        ip.Unmap(),
					InterfaceID: uint64(iface.Index),
					Interface:   iface.Name,
				})
			}
		}
		return out, nil
	}
}

// unicast 检查是否为可用的单播地址
func unicast(ip netip.Addr) bool {
	return ip.IsValid() && !ip.IsUnspecified() && !ip.IsMulticast()
}

// Fingerprint 计算地址表指纹（与条目顺序无关）
func Fingerprint(entries []types.LocalAddress) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Addr.String()+"@"+strconv.FormatUint(e.InterfaceID, 10))
	}
	slices.Sort(parts)

	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}
