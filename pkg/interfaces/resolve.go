package interfaces

import (
	"github.com/dep2p/go-fabricat/pkg/types"
)

// ResolveHandler 路径解析完成通知接收者
//
// (handler, ctx) 二元组标识一次等待登记，取消时按此匹配，
// 因此 handler 的动态类型必须可比较（通常为指针）。
//
// OnPathResolved 在解析结果产生的 goroutine 上调用，不持有任何内部锁，
// 可以重入 Resolve/Cancel。
type ResolveHandler interface {
	OnPathResolved(ctx any, path types.PathRecord, err error)
}

// funcHandler 函数适配器
type funcHandler struct {
	fn func(ctx any, path types.PathRecord, err error)
}

func (h *funcHandler) OnPathResolved(ctx any, path types.PathRecord, err error) {
	h.fn(ctx, path, err)
}

// HandlerFunc 将函数包装为 ResolveHandler
//
// 每次调用返回一个新的指针身份；取消等待时必须使用同一个返回值。
func HandlerFunc(fn func(ctx any, path types.PathRecord, err error)) ResolveHandler {
	return &funcHandler{fn: fn}
}
