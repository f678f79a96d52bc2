// Package query 提供进程内路径查询客户端
//
// LoopbackClient 按配置的路径表在固定延迟后应答查询，
// 用于实验环境、CLI 演示和集成测试。它不发送任何网络报文。
//
// 未配置的目的端以 QueryFailed 完成，错误包装 types.ErrUnreachable；
// 设置了模板时，未配置的目的端按模板合成路径记录。
package query

import "github.com/dep2p/go-fabricat/pkg/lib/log"

var logger = log.Logger("core/query")
