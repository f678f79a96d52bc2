package config

import (
	"fmt"
	"time"
)

// NeighborConfig 邻居解析配置
type NeighborConfig struct {
	// CacheSize 解析结果缓存容量，0 表示禁用缓存
	// 默认: 256
	CacheSize int `json:"cache_size"`

	// CacheTTL 缓存条目有效期
	// 默认: 30s
	CacheTTL Duration `json:"cache_ttl"`

	// RetryInterval 解析未完成时的重试间隔
	// 默认: 100ms
	RetryInterval Duration `json:"retry_interval"`

	// MaxRetries 解析未完成时的最大重试次数
	// 默认: 10
	MaxRetries int `json:"max_retries"`

	// DisableCache 显式禁用缓存
	DisableCache bool `json:"disable_cache,omitempty"`
}

// DefaultNeighborConfig 返回默认邻居解析配置
func DefaultNeighborConfig() NeighborConfig {
	return NeighborConfig{
		CacheSize:     256,
		CacheTTL:      Duration(30 * time.Second),
		RetryInterval: Duration(100 * time.Millisecond),
		MaxRetries:    10,
	}
}

// Validate 验证配置
func (c *NeighborConfig) Validate() error {
	if c.CacheSize < 0 || c.MaxRetries < 0 {
		return fmt.Errorf("%w: negative neighbor limits", ErrInvalidConfig)
	}
	if c.CacheSize == 0 && !c.DisableCache {
		c.CacheSize = 256
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = Duration(30 * time.Second)
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = Duration(100 * time.Millisecond)
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 10
	}
	return nil
}
