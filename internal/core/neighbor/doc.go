// Package neighbor 提供邻居解析实现
//
// 邻居解析把 (本地地址, 远端地址) 映射为远端的链路地址。本包提供：
//
//   - NetlinkResolver: Linux 内核邻居表（ARP/ND），按 NUD 状态分类结果
//   - StaticResolver: 静态表，用于实验环境与测试
//   - CachingResolver: 带过期时间的 LRU 缓存装饰器，只缓存成功结果
//   - RetryResolver: 对 types.ErrIncomplete 按固定间隔重试的装饰器
//
// 结果约定：
//   - types.ErrIncomplete: 解析进行中，稍后重试
//   - types.ErrUnreachable: 邻居已确认不可达
//   - 其他错误: 解析失败
package neighbor

import "github.com/dep2p/go-fabricat/pkg/lib/log"

var logger = log.Logger("core/neighbor")
