// Package fabricat 提供 fabric 地址解析与路径缓存
//
// 给定本地网络端口和目的网络地址，fabricat 产出向目的端发送 RDMA
// 流量所需的路径记录（PathRecord），并用缓存与请求合并隐藏按需
// 子网管理查询的延迟。
//
// # 核心概念
//
//   - Port Registry: 本地 fabric 端口表与本地地址表快照
//   - Router: 每个端口一个，按目的链路地址缓存 Route
//   - Route: 每个目的端一个，驱动异步解析状态机并合并并发请求
//
// # 快速开始
//
//	import "github.com/dep2p/go-fabricat"
//
//	t, err := fabricat.Start(ctx,
//	    fabricat.WithPathQueryClient(client),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	h, err := t.Register(fabricat.Registration{
//	    LinkAddress: port.LinkAddress,
//	    InterfaceID: port.IfIndex,
//	    Owner:       driverID,
//	    Record:      port.Record,
//	    Kind:        fabricat.TransportCached,
//	})
//
//	path, err := t.ResolveByIP(ctx, localIP, remoteIP, handler, connCtx)
//	switch {
//	case err == nil:
//	    // 缓存命中，path 可直接使用
//	case errors.Is(err, fabricat.ErrPending):
//	    // 结果稍后经 handler.OnPathResolved 交付，恰好一次
//	default:
//	    // 同步失败
//	}
//
// # 并发
//
// 全部方法可并发调用。ResolveByLinkAddress 与 CancelByLinkAddress
// 不获取可能阻塞的锁，可用于发送快路径；ResolveByIP 会调用邻居解析，
// 可能阻塞。回调在查询客户端完成查询的 goroutine 上执行，不持有内部锁，
// 可以重入 Resolve/Cancel。
//
// # 文件组织
//
//   - translator.go: Translator 门面
//   - options.go: 函数式选项
//   - config.go: UserConfig 配置文件结构
//   - fx.go: 模块装配
//   - errors.go: 公共错误
//   - types.go: 公共类型别名
package fabricat
