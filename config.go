package fabricat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dep2p/go-fabricat/config"
)

// UserConfig 用户配置结构
//
// 面向用户的简化配置，可以从 JSON 文件加载，内部转换为组件配置。
// 配置文件的读取由应用层（cmd/*）负责：
//
//	data, _ := os.ReadFile("fabricat.json")
//	cfg, err := fabricat.ParseUserConfig(data)
//	t, _ := fabricat.New(fabricat.WithConfig(cfg))
type UserConfig struct {
	// MaxPorts 端口表容量
	MaxPorts int `json:"max_ports,omitempty"`

	// MaxRoutesPerPort 每个端口的路由缓存上限
	MaxRoutesPerPort int `json:"max_routes_per_port,omitempty"`

	// Neighbor 邻居解析配置
	Neighbor *NeighborUserConfig `json:"neighbor,omitempty"`

	// AddressTable 地址表配置
	AddressTable *AddressTableUserConfig `json:"address_table,omitempty"`

	// Loopback 使用进程内回环查询客户端
	Loopback *LoopbackUserConfig `json:"loopback,omitempty"`

	// Metrics 是否启用指标，默认启用
	Metrics *bool `json:"metrics,omitempty"`

	// Introspect 诊断服务配置
	Introspect *IntrospectConfig `json:"introspect,omitempty"`
}

// NeighborUserConfig 邻居解析配置
type NeighborUserConfig struct {
	// CacheSize 缓存容量，0 使用默认值
	CacheSize int `json:"cache_size,omitempty"`

	// CacheTTL 缓存有效期，如 "30s"
	CacheTTL string `json:"cache_ttl,omitempty"`

	// RetryInterval 未完成时的重试间隔，如 "100ms"
	RetryInterval string `json:"retry_interval,omitempty"`

	// MaxRetries 最大重试次数
	MaxRetries int `json:"max_retries,omitempty"`

	// DisableCache 禁用缓存
	DisableCache bool `json:"disable_cache,omitempty"`
}

// AddressTableUserConfig 地址表配置
type AddressTableUserConfig struct {
	// Mode netlink | polling | static
	Mode string `json:"mode,omitempty"`

	// PollInterval 轮询间隔，如 "5s"
	PollInterval string `json:"poll_interval,omitempty"`

	// IncludeLoopback 包含回环地址
	IncludeLoopback bool `json:"include_loopback,omitempty"`
}

// LoopbackUserConfig 回环查询客户端配置
type LoopbackUserConfig struct {
	// Enable 启用回环客户端
	Enable bool `json:"enable"`

	// Delay 应答延迟，如 "2ms"
	Delay string `json:"delay,omitempty"`
}

// IntrospectConfig 诊断服务配置
type IntrospectConfig struct {
	// Enable 启用诊断 HTTP 服务
	Enable bool `json:"enable,omitempty"`

	// Addr 监听地址，默认 "127.0.0.1:6070"
	Addr string `json:"addr,omitempty"`
}

// ParseUserConfig 解析 JSON 配置
func ParseUserConfig(data []byte) (*UserConfig, error) {
	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// apply 将用户配置写入选项
func (c *UserConfig) apply(o *options) error {
	cfg := o.config

	if c.MaxPorts > 0 {
		cfg.Registry.MaxPorts = c.MaxPorts
	}
	if c.MaxRoutesPerPort > 0 {
		cfg.Registry.MaxRoutesPerPort = c.MaxRoutesPerPort
	}

	if n := c.Neighbor; n != nil {
		if n.CacheSize > 0 {
			cfg.Neighbor.CacheSize = n.CacheSize
		}
		if err := setDuration(&cfg.Neighbor.CacheTTL, n.CacheTTL); err != nil {
			return fmt.Errorf("neighbor.cache_ttl: %w", err)
		}
		if err := setDuration(&cfg.Neighbor.RetryInterval, n.RetryInterval); err != nil {
			return fmt.Errorf("neighbor.retry_interval: %w", err)
		}
		if n.MaxRetries > 0 {
			cfg.Neighbor.MaxRetries = n.MaxRetries
		}
		cfg.Neighbor.DisableCache = n.DisableCache
	}

	if a := c.AddressTable; a != nil {
		if a.Mode != "" {
			cfg.AddressTable.Mode = config.AddressTableMode(a.Mode)
		}
		if err := setDuration(&cfg.AddressTable.PollInterval, a.PollInterval); err != nil {
			return fmt.Errorf("address_table.poll_interval: %w", err)
		}
		cfg.AddressTable.IncludeLoopback = a.IncludeLoopback
	}

	if l := c.Loopback; l != nil && l.Enable {
		o.loopback = true
		o.client = nil
		if err := setDuration(&cfg.Query.Delay, l.Delay); err != nil {
			return fmt.Errorf("loopback.delay: %w", err)
		}
	}

	if c.Metrics != nil {
		cfg.Metrics.Enabled = *c.Metrics
	}

	if i := c.Introspect; i != nil {
		cfg.Introspect.Enable = i.Enable
		if i.Addr != "" {
			cfg.Introspect.Addr = i.Addr
		}
	}
	return nil
}

// setDuration 解析非空的时长字符串
func setDuration(dst *config.Duration, s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = config.Duration(d)
	return nil
}
