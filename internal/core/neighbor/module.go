package neighbor

import (
	"context"
	"io"

	"go.uber.org/fx"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
)

// New 按配置装配解析器链：重试 → 缓存（可禁用） → base
func New(cfg config.NeighborConfig, base interfaces.NeighborResolver) interfaces.NeighborResolver {
	r := base
	if !cfg.DisableCache && cfg.CacheSize > 0 {
		r = NewCachingResolver(r, cfg.CacheSize, cfg.CacheTTL.Duration())
	}
	return NewRetryResolver(r, cfg.RetryInterval.Duration(), cfg.MaxRetries)
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("neighbor",
		fx.Provide(NewFromParams),
	)
}

// Params 邻居解析依赖参数
type Params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config              `optional:"true"`
	Base   interfaces.NeighborResolver `name:"neighbor_base" optional:"true"`
}

// Result 邻居解析输出
type Result struct {
	fx.Out

	Resolver interfaces.NeighborResolver
	// Closers 本模块持有的句柄，未启动即关闭时由调用方释放
	Closers []io.Closer `group:"owned_closers,flatten"`
}

// NewFromParams 从参数创建解析器
//
// 未提供 base 时使用内核邻居表。
func NewFromParams(p Params) (Result, error) {
	cfg := config.DefaultNeighborConfig()
	if p.Config != nil {
		cfg = p.Config.Neighbor
	}

	base := p.Base
	if base == nil {
		nl, err := NewNetlinkResolver()
		if err != nil {
			return Result{}, err
		}
		base = nl
	}
	out := Result{Resolver: New(cfg, base)}
	if c, ok := base.(io.Closer); ok {
		p.LC.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return c.Close()
			},
		})
		out.Closers = []io.Closer{c}
	}
	return out, nil
}
