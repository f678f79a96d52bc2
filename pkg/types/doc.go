// Package types 定义 fabricat 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 fabricat 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
// 基础类型:
//   - ids.go     - LinkAddress, FabricID, OwnerID
//   - enums.go   - TransportKind, RouteState, QueryStatus
//   - errors.go  - 公共错误定义
//
// 路由类型:
//   - records.go - PortRecord, PathRecord
//   - address.go - LocalAddress, PortFilter, 地址族检查
package types
