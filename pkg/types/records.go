package types

import "fmt"

// ============================================================================
//                              PortRecord - 本地端口记录
// ============================================================================

// PortRecord 本地 fabric 端口记录
//
// 注册后不可变，查询时原样返回。
type PortRecord struct {
	// PortGUID 端口 GUID
	PortGUID uint64 `json:"port_guid"`

	// PKey 分区键
	PKey uint16 `json:"pkey"`

	// CAGUID 所属 HCA 的 GUID
	CAGUID uint64 `json:"ca_guid"`
}

// String 返回可读表示
func (r PortRecord) String() string {
	return fmt.Sprintf("port=%s pkey=0x%04x ca=%s", hexGUID(r.PortGUID), r.PKey, hexGUID(r.CAGUID))
}

// ============================================================================
//                              PathRecord - 路径记录
// ============================================================================

// PathRecord 发送 RDMA 流量到目的端所需的路由信息
type PathRecord struct {
	// SGID 源 GID
	SGID FabricID `json:"sgid"`

	// DGID 目的 GID
	DGID FabricID `json:"dgid"`

	// SLID 源 LID
	SLID uint16 `json:"slid"`

	// DLID 目的 LID
	DLID uint16 `json:"dlid"`

	// PKey 分区键
	PKey uint16 `json:"pkey"`

	// FlowLabel 流标签（20 位）
	FlowLabel uint32 `json:"flow_label"`

	// HopLimit 跳数限制
	HopLimit uint8 `json:"hop_limit"`

	// TrafficClass 流量类别
	TrafficClass uint8 `json:"traffic_class"`

	// SL 服务等级
	SL uint8 `json:"sl"`

	// MTU 路径 MTU 编码（IB 枚举值）
	MTU uint8 `json:"mtu"`

	// Rate 速率编码（IB 枚举值）
	Rate uint8 `json:"rate"`

	// PacketLifetime 包生存期编码
	PacketLifetime uint8 `json:"packet_lifetime"`

	// Reversible 路径是否可逆
	Reversible bool `json:"reversible"`
}

// IsZero 检查是否为零值
func (p PathRecord) IsZero() bool {
	return p == PathRecord{}
}

// String 返回可读表示
func (p PathRecord) String() string {
	return fmt.Sprintf("%s -> %s dlid=%d pkey=0x%04x sl=%d", p.SGID, p.DGID, p.DLID, p.PKey, p.SL)
}
