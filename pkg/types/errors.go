// Package types 定义 fabricat 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import "errors"

// ============================================================================
//                              结构性错误（同步返回）
// ============================================================================

var (
	// ErrNotFound 未找到匹配的端口、路由或地址
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRegistered 链路地址已注册
	ErrAlreadyRegistered = errors.New("port already registered")

	// ErrCapacityExceeded 端口表已满
	ErrCapacityExceeded = errors.New("port table capacity exceeded")

	// ErrInsufficientResources 资源分配失败
	ErrInsufficientResources = errors.New("insufficient resources")

	// ErrAddressMismatch 端口存在但所属驱动不匹配
	ErrAddressMismatch = errors.New("address owner mismatch")

	// ErrInvalidAddressFamily 不支持的地址族或本地/远端地址族不一致
	ErrInvalidAddressFamily = errors.New("invalid address family")

	// ErrInvalidLinkAddress 无效的链路层地址
	ErrInvalidLinkAddress = errors.New("invalid link address")

	// ErrClosed 组件已关闭
	ErrClosed = errors.New("closed")
)

// ============================================================================
//                              解析结果错误（经回调交付）
// ============================================================================

var (
	// ErrPending 解析已排队，结果将通过回调交付
	//
	// 这不是失败：调用方收到 ErrPending 后，恰好会收到一次回调。
	ErrPending = errors.New("resolution pending")

	// ErrUnreachable 邻居或路径已确认不可达
	ErrUnreachable = errors.New("destination unreachable")

	// ErrTimeout 解析未在时限内完成（区别于不可达）
	ErrTimeout = errors.New("resolution timed out")

	// ErrIncomplete 邻居解析未完成，调用方应稍后重试
	ErrIncomplete = errors.New("neighbor resolution incomplete")

	// ErrQueryFailed 路径查询协议层失败
	ErrQueryFailed = errors.New("path query failed")
)
