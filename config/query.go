package config

import (
	"fmt"
	"time"
)

// QueryConfig 进程内回环路径查询客户端配置
type QueryConfig struct {
	// Delay 查询完成延迟，模拟子网管理往返
	// 默认: 2ms
	Delay Duration `json:"delay"`
}

// DefaultQueryConfig 返回默认查询配置
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		Delay: Duration(2 * time.Millisecond),
	}
}

// Validate 验证配置
func (c *QueryConfig) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("%w: negative query delay %s", ErrInvalidConfig, c.Delay.Duration())
	}
	return nil
}
