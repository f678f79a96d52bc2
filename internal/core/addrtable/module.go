package addrtable

import (
	"context"
	"io"

	"go.uber.org/fx"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
)

// New 按配置创建地址表提供者
//
// netlink 模式在不可用时回退到轮询。
func New(cfg config.AddressTableConfig) (interfaces.AddressTableProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case config.AddressTableStatic:
		return NewStaticProvider(), nil
	case config.AddressTablePolling:
		return NewPollingProvider(InterfaceSource(cfg.IncludeLoopback), cfg.PollInterval.Duration()), nil
	default:
		p, err := NewNetlinkProvider(cfg.IncludeLoopback)
		if err != nil {
			logger.Warn("netlink 地址表不可用，回退到轮询", "err", err)
			return NewPollingProvider(InterfaceSource(cfg.IncludeLoopback), cfg.PollInterval.Duration()), nil
		}
		return p, nil
	}
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("addrtable",
		fx.Provide(NewFromParams),
	)
}

// Params 地址表依赖参数
type Params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config                  `optional:"true"`
	Base   interfaces.AddressTableProvider `name:"addrtable_base" optional:"true"`
}

// Result 地址表输出
type Result struct {
	fx.Out

	Provider interfaces.AddressTableProvider
	// Closers 本模块创建的提供者，注入的 addrtable_base 不在其中
	Closers []io.Closer `group:"owned_closers,flatten"`
}

// NewFromParams 从参数创建地址表提供者
//
// 注入了 addrtable_base 时直接使用，其生命周期归调用方所有。
func NewFromParams(p Params) (Result, error) {
	if p.Base != nil {
		return Result{Provider: p.Base}, nil
	}

	cfg := config.DefaultAddressTableConfig()
	if p.Config != nil {
		cfg = p.Config.AddressTable
	}
	prov, err := New(cfg)
	if err != nil {
		return Result{}, err
	}
	out := Result{Provider: prov}
	if c, ok := prov.(io.Closer); ok {
		p.LC.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return c.Close()
			},
		})
		out.Closers = []io.Closer{c}
	}
	return out, nil
}
