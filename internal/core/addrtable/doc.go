// Package addrtable 提供本地单播地址表
//
// 地址表把本地 IP 地址映射到拥有它的本地接口标识，注册表据此把本地
// 地址转换为已注册的 fabric 端口。本包提供三种来源：
//
//   - NetlinkProvider: Linux rtnetlink，AddrList 快照 + 地址变更订阅
//   - PollingProvider: 跨平台轮询，按固定间隔计算地址表指纹，变化时通知
//   - StaticProvider: 静态地址表，用于实验环境与测试
//
// 订阅回调可能在任意 goroutine 上调用，收到通知后调用方应重新 Snapshot。
package addrtable

import "github.com/dep2p/go-fabricat/pkg/lib/log"

var logger = log.Logger("core/addrtable")
