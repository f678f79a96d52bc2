package config

import "fmt"

// RegistryConfig 端口注册表配置
type RegistryConfig struct {
	// MaxPorts 端口表容量
	// 默认: 4
	MaxPorts int `json:"max_ports"`

	// MaxRoutesPerPort 每个端口路由表的条目上限，0 表示不限制
	// 超过上限时解析返回 ErrInsufficientResources
	// 默认: 0
	MaxRoutesPerPort int `json:"max_routes_per_port"`

	// RefreshRate 地址表刷新速率上限（次/秒）
	// 变化通知风暴通过令牌桶限速，通知回调阻塞至取得令牌
	// 默认: 10
	RefreshRate float64 `json:"refresh_rate"`

	// RefreshBurst 刷新令牌桶容量
	// 默认: 1
	RefreshBurst int `json:"refresh_burst"`
}

// DefaultRegistryConfig 返回默认注册表配置
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaxPorts:     4,
		RefreshRate:  10,
		RefreshBurst: 1,
	}
}

// Validate 验证配置
func (c *RegistryConfig) Validate() error {
	if c.MaxPorts < 0 {
		return fmt.Errorf("%w: max_ports must be positive, got %d", ErrInvalidConfig, c.MaxPorts)
	}
	if c.MaxPorts == 0 {
		c.MaxPorts = 4
	}
	if c.MaxRoutesPerPort < 0 {
		return fmt.Errorf("%w: max_routes_per_port must not be negative", ErrInvalidConfig)
	}
	if c.RefreshRate <= 0 {
		c.RefreshRate = 10
	}
	if c.RefreshBurst <= 0 {
		c.RefreshBurst = 1
	}
	return nil
}
