// Package metrics 提供路径缓存的 Prometheus 指标
//
// Collector 的所有方法对 nil 接收者安全，组件可以在未启用指标时
// 直接持有 nil 而无需判空：
//
//	var m *metrics.Collector // 未启用
//	m.CacheHit()             // 空操作
//
// # 指标
//
//	<ns>_route_cache_hits_total                    已解析路由的同步命中
//	<ns>_route_cache_misses_total                  需要等待或发起查询的解析
//	<ns>_path_queries_total                        提交的路径查询
//	<ns>_path_query_submit_failures_total          提交失败的路径查询
//	<ns>_path_query_completions_total{outcome}     按结果分类的查询完成
//	<ns>_route_waiters_notified_total              已通知的等待者
//	<ns>_ports_registered                          已注册端口数
//	<ns>_address_table_entries                     本地地址表条目数
//	<ns>_address_table_refreshes_total{result}     地址表刷新
package metrics
