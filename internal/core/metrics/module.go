package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-fabricat/config"
)

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Config     *config.Config        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Output Metrics 输出
type Output struct {
	fx.Out

	Collector *Collector
	// Gatherer 供 /metrics 端点读取；注入的 Registerer 不可读取时为 nil
	Gatherer prometheus.Gatherer
}

// Module 是 metrics 的 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(NewFromParams),
	)
}

// NewFromParams 从参数创建 Collector
//
// 指标禁用时 Collector 为 nil，下游组件持有 nil Collector 即为空操作。
// 未注入 Registerer 时使用私有注册表。
func NewFromParams(p Params) (Output, error) {
	cfg := config.DefaultMetricsConfig()
	if p.Config != nil {
		cfg = p.Config.Metrics
	}
	if !cfg.Enabled {
		return Output{}, nil
	}

	reg := p.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c, err := New(cfg.Namespace, reg)
	if err != nil {
		return Output{}, err
	}

	out := Output{Collector: c}
	if g, ok := reg.(prometheus.Gatherer); ok {
		out.Gatherer = g
	}
	return out, nil
}
