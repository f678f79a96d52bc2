package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/google/uuid"
)

// ============================================================================
//                              LinkAddress - 链路层地址
// ============================================================================

// LinkAddress 链路层地址（MAC 等价标识）
//
// 48 位以太网 MAC 存放在低 48 位；IPoIB 端口使用完整的 64 位 GUID。
// 路由缓存以其数值作为键，比较是纯数值比较。
type LinkAddress uint64

// macMask 48 位 MAC 掩码
const macMask = 1<<48 - 1

// IsMAC48 判断地址是否能以 48 位 MAC 表示
func (a LinkAddress) IsMAC48() bool {
	return uint64(a)&^macMask == 0
}

// HardwareAddr 转换为 net.HardwareAddr
//
// 48 位地址返回 6 字节，否则返回 8 字节（EUI-64）。
func (a LinkAddress) HardwareAddr() net.HardwareAddr {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(a))
	if a.IsMAC48() {
		return net.HardwareAddr(buf[2:])
	}
	return net.HardwareAddr(buf[:])
}

// String 返回冒号分隔的十六进制表示
func (a LinkAddress) String() string {
	return a.HardwareAddr().String()
}

// LinkAddressFromHardware 从硬件地址创建 LinkAddress
//
// 支持的长度：
//   - 6 字节：以太网 MAC
//   - 8 字节：EUI-64 / 端口 GUID
//   - 20 字节：IPoIB 硬件地址（QPN + GID），取 GID 的接口标识部分
func LinkAddressFromHardware(hw net.HardwareAddr) (LinkAddress, error) {
	switch len(hw) {
	case 6:
		var buf [8]byte
		copy(buf[2:], hw)
		return LinkAddress(binary.BigEndian.Uint64(buf[:])), nil
	case 8:
		return LinkAddress(binary.BigEndian.Uint64(hw)), nil
	case 20:
		return LinkAddress(binary.BigEndian.Uint64(hw[12:])), nil
	default:
		return 0, fmt.Errorf("%w: hardware address length %d", ErrInvalidLinkAddress, len(hw))
	}
}

// ParseLinkAddress 解析链路层地址字符串
//
// 接受 net.ParseMAC 支持的格式，以及 "0x" 前缀的十六进制数值。
func ParseLinkAddress(s string) (LinkAddress, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		var v uint64
		if _, err := fmt.Sscanf(s[2:], "%x", &v); err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidLinkAddress, s)
		}
		return LinkAddress(v), nil
	}
	hw, err := net.ParseMAC(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLinkAddress, s)
	}
	return LinkAddressFromHardware(hw)
}

// ============================================================================
//                              FabricID - 网络层身份（GID）
// ============================================================================

// FabricID 网络层身份标识（128 位 GID）
//
// 高 64 位为子网前缀，低 64 位为接口标识。
type FabricID [16]byte

// LinkLocalPrefix 链路本地子网前缀 fe80::/64
const LinkLocalPrefix uint64 = 0xfe80_0000_0000_0000

// NewFabricID 由子网前缀和接口标识构造 FabricID
func NewFabricID(prefix, interfaceID uint64) FabricID {
	var id FabricID
	binary.BigEndian.PutUint64(id[:8], prefix)
	binary.BigEndian.PutUint64(id[8:], interfaceID)
	return id
}

// ParseFabricID 解析 IPv6 文本形式的 GID
func ParseFabricID(s string) (FabricID, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is6() {
		return FabricID{}, fmt.Errorf("invalid fabric id %q", s)
	}
	return FabricID(addr.As16()), nil
}

// Prefix 返回子网前缀
func (id FabricID) Prefix() uint64 {
	return binary.BigEndian.Uint64(id[:8])
}

// InterfaceID 返回接口标识
func (id FabricID) InterfaceID() uint64 {
	return binary.BigEndian.Uint64(id[8:])
}

// IsZero 检查是否为零值
func (id FabricID) IsZero() bool {
	return id == FabricID{}
}

// String 返回 IPv6 文本形式
func (id FabricID) String() string {
	return netip.AddrFrom16(id).String()
}

// MarshalText 实现 encoding.TextMarshaler
func (id FabricID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (id *FabricID) UnmarshalText(b []byte) error {
	parsed, err := ParseFabricID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// EUI64 由 48 位 MAC 派生修改后的 EUI-64 接口标识
//
// 插入 ff:fe 并翻转 U/L 位。
func EUI64(a LinkAddress) uint64 {
	hw := a.HardwareAddr()
	if len(hw) != 6 {
		return uint64(a)
	}
	b := [8]byte{hw[0] ^ 0x02, hw[1], hw[2], 0xff, 0xfe, hw[3], hw[4], hw[5]}
	return binary.BigEndian.Uint64(b[:])
}

// ============================================================================
//                              OwnerID - 注册驱动标识
// ============================================================================

// OwnerID 注册端口的上层驱动标识（GUID）
type OwnerID uuid.UUID

// NewOwnerID 生成随机 OwnerID
func NewOwnerID() OwnerID {
	return OwnerID(uuid.New())
}

// ParseOwnerID 解析 OwnerID 字符串
func ParseOwnerID(s string) (OwnerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return OwnerID{}, fmt.Errorf("invalid owner id %q: %w", s, err)
	}
	return OwnerID(u), nil
}

// IsNil 检查是否为空 GUID
func (o OwnerID) IsNil() bool {
	return uuid.UUID(o) == uuid.Nil
}

// String 返回标准 GUID 文本
func (o OwnerID) String() string {
	return uuid.UUID(o).String()
}

// MarshalText 实现 encoding.TextMarshaler
func (o OwnerID) MarshalText() ([]byte, error) {
	return uuid.UUID(o).MarshalText()
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (o *OwnerID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return fmt.Errorf("invalid owner id %q: %w", b, err)
	}
	*o = OwnerID(u)
	return nil
}

// hexGUID 以 0x 前缀十六进制格式化 64 位 GUID
func hexGUID(v uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return "0x" + hex.EncodeToString(buf[:])
}
