package fabricat

import (
	"errors"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrAlreadyStarted Translator 已启动
	ErrAlreadyStarted = errors.New("translator already started")

	// ErrClosed Translator 已关闭
	ErrClosed = types.ErrClosed

	// ────────────────────────────────────────────────────────────────────────
	// 结构性错误（同步返回）
	// ────────────────────────────────────────────────────────────────────────

	ErrNotFound              = types.ErrNotFound
	ErrAlreadyRegistered     = types.ErrAlreadyRegistered
	ErrCapacityExceeded      = types.ErrCapacityExceeded
	ErrInsufficientResources = types.ErrInsufficientResources
	ErrAddressMismatch       = types.ErrAddressMismatch
	ErrInvalidAddressFamily  = types.ErrInvalidAddressFamily

	// ────────────────────────────────────────────────────────────────────────
	// 解析结果错误（ErrPending 之外均经回调交付）
	// ────────────────────────────────────────────────────────────────────────

	ErrPending     = types.ErrPending
	ErrUnreachable = types.ErrUnreachable
	ErrTimeout     = types.ErrTimeout
	ErrIncomplete  = types.ErrIncomplete
	ErrQueryFailed = types.ErrQueryFailed
)
