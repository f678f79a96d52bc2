package config

import (
	"fmt"
	"time"
)

// AddressTableMode 本地地址表来源
type AddressTableMode string

const (
	// AddressTableNetlink 使用 netlink 快照与订阅（仅 Linux，其他平台回退到轮询）
	AddressTableNetlink AddressTableMode = "netlink"

	// AddressTablePolling 轮询 net.Interfaces() 并比较指纹
	AddressTablePolling AddressTableMode = "polling"

	// AddressTableStatic 静态地址表（测试与工具）
	AddressTableStatic AddressTableMode = "static"
)

// AddressTableConfig 本地地址表配置
type AddressTableConfig struct {
	// Mode 地址表来源
	// 默认: netlink
	Mode AddressTableMode `json:"mode"`

	// PollInterval 轮询间隔（仅 polling 模式）
	// 默认: 5s
	PollInterval Duration `json:"poll_interval"`

	// IncludeLoopback 是否包含回环地址
	IncludeLoopback bool `json:"include_loopback,omitempty"`
}

// DefaultAddressTableConfig 返回默认地址表配置
func DefaultAddressTableConfig() AddressTableConfig {
	return AddressTableConfig{
		Mode:         AddressTableNetlink,
		PollInterval: Duration(5 * time.Second),
	}
}

// Validate 验证配置
func (c *AddressTableConfig) Validate() error {
	switch c.Mode {
	case "":
		c.Mode = AddressTableNetlink
	case AddressTableNetlink, AddressTablePolling, AddressTableStatic:
	default:
		return fmt.Errorf("%w: unknown address table mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.PollInterval <= 0 {
		c.PollInterval = Duration(5 * time.Second)
	}
	return nil
}
