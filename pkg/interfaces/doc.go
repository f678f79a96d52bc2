// Package interfaces 定义 fabricat 的公共接口
//
// 接口按角色组织：
//
// # 外部协作者（由宿主环境提供）
//
//   - neighbor.go   - 邻居解析（本地/远端 IP → 远端链路地址，可阻塞）
//   - query.go      - 路径查询客户端（异步提交/取消，单一完成回调）
//   - addrtable.go  - 本地地址表（快照 + 变化通知）
//
// # 向上层暴露
//
//   - resolve.go    - 解析完成回调（ResolveHandler）
//
// 外部协作者只以接口形式出现，本包不包含任何实现。
package interfaces
