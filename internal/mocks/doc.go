// Package mocks 提供统一的测试双（Test Doubles）
//
// # 查询
//
//   - MockPathQueryClient: 模拟 interfaces.PathQueryClient，完成时机由测试手动控制
//
// # 解析
//
//   - MockNeighborResolver: 模拟 interfaces.NeighborResolver
//   - RecordingHandler: 记录 OnPathResolved 回调的 ResolveHandler
//
// # 地址表
//
//   - MockAddressTable: 模拟 interfaces.AddressTableProvider，可手动触发变更通知
//
// 所有 Mock 都提供可覆盖的 XxxFunc 字段和调用记录，且可并发使用。
package mocks
