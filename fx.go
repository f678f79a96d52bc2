package fabricat

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-fabricat/internal/core/addrtable"
	"github.com/dep2p/go-fabricat/internal/core/metrics"
	"github.com/dep2p/go-fabricat/internal/core/neighbor"
	"github.com/dep2p/go-fabricat/internal/core/query"
	"github.com/dep2p/go-fabricat/internal/core/registry"
	"github.com/dep2p/go-fabricat/internal/debug/introspect"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 指标（可选）
//  2. 外部协作者：地址表、邻居解析、查询客户端
//  3. 端口注册表
//  4. 诊断服务（可选）
//  5. 用户扩展
func buildFxApp(o *options, t *Translator) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(o.config),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 指标（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if o.config.Metrics.Enabled {
		if o.registerer != nil {
			reg := o.registerer
			modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
		}
		modules = append(modules, metrics.Module())
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 外部协作者
	// ════════════════════════════════════════════════════════════════════════
	if o.addrTable != nil {
		p := o.addrTable
		modules = append(modules, fx.Provide(fx.Annotate(
			func() interfaces.AddressTableProvider { return p },
			fx.ResultTags(`name:"addrtable_base"`),
		)))
	}
	modules = append(modules, addrtable.Module())

	if o.neighbor != nil {
		r := o.neighbor
		modules = append(modules, fx.Provide(fx.Annotate(
			func() interfaces.NeighborResolver { return r },
			fx.ResultTags(`name:"neighbor_base"`),
		)))
	}
	modules = append(modules, neighbor.Module())

	switch {
	case o.client != nil:
		c := o.client
		modules = append(modules, fx.Provide(func() interfaces.PathQueryClient { return c }))
	case o.loopback:
		modules = append(modules, query.Module())
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 端口注册表（始终加载）
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, registry.Module())

	// ════════════════════════════════════════════════════════════════════════
	// 5. 诊断服务（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if o.config.Introspect.Enable {
		modules = append(modules, introspect.Module())
	}

	// ════════════════════════════════════════════════════════════════════════
	// 6. 用户扩展
	// ════════════════════════════════════════════════════════════════════════
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 7. 组件注入与 Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		fx.Invoke(injectComponents(t)),
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// injectParams Translator 组件注入参数
type injectParams struct {
	fx.In

	Registry *registry.Registry
	Neighbor interfaces.NeighborResolver

	Client     interfaces.PathQueryClient `optional:"true"`
	Loopback   *query.LoopbackClient      `optional:"true"`
	Metrics    *metrics.Collector         `optional:"true"`
	Gatherer   prometheus.Gatherer        `optional:"true"`
	Introspect *introspect.Server         `optional:"true"`

	// Closers 组件自有的句柄（netlink 邻居表、地址表）
	Closers []io.Closer `group:"owned_closers"`
}

// injectComponents 创建组件注入函数
func injectComponents(t *Translator) any {
	return func(p injectParams) {
		t.registry = p.Registry
		t.neighbor = p.Neighbor
		t.client = p.Client
		t.loopback = p.Loopback
		t.metrics = p.Metrics
		t.gatherer = p.Gatherer
		t.introspect = p.Introspect
		t.closers = p.Closers
	}
}
