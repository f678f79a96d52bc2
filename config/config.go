// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 并提供 DefaultXxxConfig() 与 Validate()。Validate 会为零值字段
// 填充默认值，只对无法修复的取值返回错误。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Registry.MaxPorts = 8
//	cfg.AddressTable.Mode = config.AddressTablePolling
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidConfig 无效配置
var ErrInvalidConfig = errors.New("invalid config")

// Config 是 fabricat 的完整配置结构
//
// 配置按照功能模块组织：
//   - Registry: 端口表容量、地址表刷新节流、路由表上限
//   - Neighbor: 邻居解析缓存与重试
//   - AddressTable: 本地地址表来源
//   - Query: 回环路径查询客户端
//   - Metrics: Prometheus 指标
//   - Introspect: 本地诊断 HTTP 服务
type Config struct {
	// Registry 端口注册表配置
	Registry RegistryConfig `json:"registry"`

	// Neighbor 邻居解析配置
	Neighbor NeighborConfig `json:"neighbor"`

	// AddressTable 本地地址表配置
	AddressTable AddressTableConfig `json:"address_table"`

	// Query 回环查询客户端配置
	Query QueryConfig `json:"query"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Introspect 诊断服务配置
	Introspect IntrospectConfig `json:"introspect"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Registry:     DefaultRegistryConfig(),
		Neighbor:     DefaultNeighborConfig(),
		AddressTable: DefaultAddressTableConfig(),
		Query:        DefaultQueryConfig(),
		Metrics:      DefaultMetricsConfig(),
		Introspect:   DefaultIntrospectConfig(),
	}
}

// Validate 验证配置并填充默认值
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := c.Neighbor.Validate(); err != nil {
		return fmt.Errorf("neighbor: %w", err)
	}
	if err := c.AddressTable.Validate(); err != nil {
		return fmt.Errorf("address_table: %w", err)
	}
	if err := c.Query.Validate(); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Introspect.Validate(); err != nil {
		return fmt.Errorf("introspect: %w", err)
	}
	return nil
}

// FromJSON 从 JSON 加载配置
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
