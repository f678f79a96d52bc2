package query

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
	"github.com/dep2p/go-fabricat/pkg/types"
)

// DefaultTemplate 回环客户端默认合成模板
var DefaultTemplate = types.PathRecord{
	SLID:       1,
	HopLimit:   1,
	MTU:        4, // 2048
	Rate:       3, // 10 Gb/s
	Reversible: true,
}

// Module 返回 Fx 模块，提供 interfaces.PathQueryClient
func Module() fx.Option {
	return fx.Module("query",
		fx.Provide(NewFromParams),
	)
}

// Params 回环客户端依赖参数
type Params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config `optional:"true"`
}

// Result 回环客户端输出
type Result struct {
	fx.Out

	Client   interfaces.PathQueryClient
	Loopback *LoopbackClient
}

// NewFromParams 从参数创建回环客户端，使用 DefaultTemplate 应答
func NewFromParams(p Params) Result {
	cfg := config.DefaultQueryConfig()
	if p.Config != nil {
		cfg = p.Config.Query
	}

	c := NewLoopbackClient(cfg.Delay.Duration())
	c.SetTemplate(DefaultTemplate)

	p.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return c.Close()
		},
	})
	return Result{Client: c, Loopback: c}
}
