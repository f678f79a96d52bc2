package fabricat

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config *config.Config

	// 外部协作者，未设置时使用内置实现
	neighbor  interfaces.NeighborResolver
	client    interfaces.PathQueryClient
	addrTable interfaces.AddressTableProvider

	// loopback 使用进程内回环查询客户端
	loopback bool

	registerer prometheus.Registerer

	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// ============================================================================
//                              容量选项
// ============================================================================

// WithMaxPorts 设置端口表容量
//
// 默认值: 4
func WithMaxPorts(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("max ports must be positive, got %d", n)
		}
		o.config.Registry.MaxPorts = n
		return nil
	}
}

// WithMaxRoutesPerPort 设置每个端口的路由缓存上限，0 表示不限制
func WithMaxRoutesPerPort(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return fmt.Errorf("max routes must not be negative, got %d", n)
		}
		o.config.Registry.MaxRoutesPerPort = n
		return nil
	}
}

// ============================================================================
//                              协作者选项
// ============================================================================

// WithNeighborResolver 使用自定义邻居解析服务
//
// 解析器仍会被包装上缓存与 ErrIncomplete 重试。
func WithNeighborResolver(r interfaces.NeighborResolver) Option {
	return func(o *options) error {
		if r == nil {
			return fmt.Errorf("neighbor resolver is nil")
		}
		o.neighbor = r
		return nil
	}
}

// WithPathQueryClient 使用路径查询客户端
//
// 未设置查询客户端时，缓存模式端口无法注册。
func WithPathQueryClient(c interfaces.PathQueryClient) Option {
	return func(o *options) error {
		if c == nil {
			return fmt.Errorf("path query client is nil")
		}
		o.client = c
		o.loopback = false
		return nil
	}
}

// WithLoopbackQueries 使用进程内回环查询客户端（实验环境、演示）
func WithLoopbackQueries() Option {
	return func(o *options) error {
		o.client = nil
		o.loopback = true
		return nil
	}
}

// WithAddressTableProvider 使用自定义本地地址表
func WithAddressTableProvider(p interfaces.AddressTableProvider) Option {
	return func(o *options) error {
		if p == nil {
			return fmt.Errorf("address table provider is nil")
		}
		o.addrTable = p
		return nil
	}
}

// WithAddressTableMode 选择内置地址表来源
func WithAddressTableMode(mode config.AddressTableMode) Option {
	return func(o *options) error {
		o.config.AddressTable.Mode = mode
		return nil
	}
}

// ============================================================================
//                              诊断选项
// ============================================================================

// WithMetricsRegisterer 将指标注册到 reg
//
// reg 同时实现 prometheus.Gatherer 时（如 *prometheus.Registry），
// 诊断服务的 /metrics 端点从 reg 读取。
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		o.config.Metrics.Enabled = reg != nil
		return nil
	}
}

// WithIntrospect 启用或禁用本地诊断 HTTP 服务
//
// 默认监听地址: 127.0.0.1:6070（仅本地可访问）
//
//	GET /debug/fabricat        - 汇总报告
//	GET /debug/fabricat/ports  - 端口表
//	GET /debug/fabricat/routes - 路由缓存
//	GET /metrics               - Prometheus 指标
func WithIntrospect(enable bool) Option {
	return func(o *options) error {
		o.config.Introspect.Enable = enable
		return nil
	}
}

// WithIntrospectAddr 设置诊断服务监听地址
//
// 安全警告: 不建议将诊断服务暴露到公网，pprof 端点可能泄露敏感信息。
func WithIntrospectAddr(addr string) Option {
	return func(o *options) error {
		o.config.Introspect.Addr = addr
		return nil
	}
}

// ============================================================================
//                              扩展选项
// ============================================================================

// WithFxOptions 追加 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}

// WithConfig 使用 UserConfig 结构体配置
//
// 适用于从 JSON 文件加载配置的场景。之后的选项可以覆盖其中的值。
func WithConfig(cfg *UserConfig) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		return cfg.apply(o)
	}
}
