// Package introspect 提供本地诊断 HTTP 服务
//
// 该服务运行在本地端口，以 JSON 输出端口表、路由缓存与地址表快照，
// 用于调试和监控。默认绑定到 127.0.0.1，不暴露到网络。
//
// # 端点
//
//	GET /debug/fabricat                 - 汇总报告 (JSON)
//	GET /debug/fabricat/ports           - 端口表
//	GET /debug/fabricat/routes?port=LA  - 指定端口的路由缓存
//	GET /debug/fabricat/addrs           - 本地地址表快照
//	GET /debug/fabricat/runtime         - Go 运行时信息
//	GET /metrics                        - Prometheus 指标
//	GET /debug/pprof/*                  - Go pprof 端点
//	GET /health                         - 健康检查
//
// # 使用示例
//
//	server := introspect.New(introspect.Config{
//	    Addr:     "127.0.0.1:6070",
//	    Source:   reg,
//	    Gatherer: promRegistry,
//	})
//	server.Start(ctx)
//	defer server.Stop()
//
// # 安全
//
// 默认只监听本地地址。需要远程访问时请自行配置访问控制。
package introspect
