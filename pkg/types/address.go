package types

import (
	"net/netip"
)

// LocalAddress 本地单播地址表条目
type LocalAddress struct {
	// Addr 本地 IP 地址
	Addr netip.Addr `json:"addr"`

	// InterfaceID 拥有该地址的本地接口标识
	InterfaceID uint64 `json:"interface_id"`

	// Interface 接口名称（可选，仅用于诊断）
	Interface string `json:"interface,omitempty"`
}

// PortFilter 端口过滤条件
//
// 字段为 nil 表示不限制。
type PortFilter struct {
	Owner    *OwnerID
	CAGUID   *uint64
	PortGUID *uint64
	PKey     *uint16
}

// Match 检查端口是否满足过滤条件
func (f PortFilter) Match(owner OwnerID, rec PortRecord) bool {
	if f.Owner != nil && *f.Owner != owner {
		return false
	}
	if f.CAGUID != nil && *f.CAGUID != rec.CAGUID {
		return false
	}
	if f.PortGUID != nil && *f.PortGUID != rec.PortGUID {
		return false
	}
	if f.PKey != nil && *f.PKey != rec.PKey {
		return false
	}
	return true
}

// CheckAddressPair 检查本地/远端地址对的地址族
//
// 仅支持 IPv4 和 IPv6，且两端必须同族。IPv4 映射的 IPv6 地址按 IPv4 处理。
func CheckAddressPair(local, remote netip.Addr) (netip.Addr, netip.Addr, error) {
	local, remote = local.Unmap(), remote.Unmap()
	if !local.IsValid() || !remote.IsValid() {
		return local, remote, ErrInvalidAddressFamily
	}
	if local.Is4() != remote.Is4() {
		return local, remote, ErrInvalidAddressFamily
	}
	return local, remote, nil
}
