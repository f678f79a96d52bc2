package config

import "fmt"

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否启用 Prometheus 指标
	// 默认: true
	Enabled bool `json:"enabled"`

	// Namespace 指标命名空间
	// 默认: "fabricat"
	Namespace string `json:"namespace"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "fabricat",
	}
}

// Validate 验证配置
func (c *MetricsConfig) Validate() error {
	if c.Namespace == "" {
		c.Namespace = "fabricat"
	}
	return nil
}

// DefaultIntrospectAddr 诊断服务默认监听地址
const DefaultIntrospectAddr = "127.0.0.1:6070"

// IntrospectConfig 诊断服务配置
type IntrospectConfig struct {
	// Enable 启用本地诊断 HTTP 服务
	Enable bool `json:"enable"`

	// Addr 监听地址
	// 默认: 127.0.0.1:6070
	Addr string `json:"addr"`
}

// DefaultIntrospectConfig 返回默认诊断服务配置
func DefaultIntrospectConfig() IntrospectConfig {
	return IntrospectConfig{
		Addr: DefaultIntrospectAddr,
	}
}

// Validate 验证配置
func (c *IntrospectConfig) Validate() error {
	if c.Addr == "" {
		c.Addr = DefaultIntrospectAddr
	}
	if c.Enable && c.Addr[0] == ':' {
		return fmt.Errorf("%w: introspect addr %q binds all interfaces; use an explicit host", ErrInvalidConfig, c.Addr)
	}
	return nil
}
