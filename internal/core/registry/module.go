package registry

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/internal/core/metrics"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// Params 注册表依赖参数
type Params struct {
	fx.In

	Provider interfaces.AddressTableProvider

	Config  *config.Config             `optional:"true"`
	Client  interfaces.PathQueryClient `optional:"true"`
	Metrics *metrics.Collector         `optional:"true"`
}

// NewFromParams 从参数创建注册表
func NewFromParams(p Params) (*Registry, error) {
	cfg := config.DefaultRegistryConfig()
	if p.Config != nil {
		cfg = p.Config.Registry
	}
	return New(context.Background(), cfg, p.Provider, p.Client, p.Metrics)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC       fx.Lifecycle
	Registry *Registry
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Registry.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return input.Registry.Close()
		},
	})
}
