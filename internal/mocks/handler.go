package mocks

import (
	"sync"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// Resolution 记录一次 OnPathResolved 回调
type Resolution struct {
	Context any
	Path    types.PathRecord
	Err     error
}

// RecordingHandler 记录全部回调的 ResolveHandler
type RecordingHandler struct {
	mu    sync.Mutex
	calls []Resolution

	// C 每次回调后发送一条记录（可选，需预先分配缓冲）
	C chan Resolution

	// OnResolvedFunc 回调时额外执行（可重入 Resolve/Cancel）
	OnResolvedFunc func(ctx any, path types.PathRecord, err error)
}

// NewRecordingHandler 创建带缓冲通知通道的 RecordingHandler
func NewRecordingHandler() *RecordingHandler {
	return &RecordingHandler{C: make(chan Resolution, 64)}
}

// OnPathResolved 记录回调
func (h *RecordingHandler) OnPathResolved(ctx any, path types.PathRecord, err error) {
	r := Resolution{Context: ctx, Path: path, Err: err}
	h.mu.Lock()
	h.calls = append(h.calls, r)
	h.mu.Unlock()

	if h.OnResolvedFunc != nil {
		h.OnResolvedFunc(ctx, path, err)
	}
	if h.C != nil {
		select {
		case h.C <- r:
		default:
		}
	}
}

// Calls 返回回调记录的副本
func (h *RecordingHandler) Calls() []Resolution {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Resolution(nil), h.calls...)
}

// Count 返回回调次数
func (h *RecordingHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

// Contexts 按回调顺序返回上下文
func (h *RecordingHandler) Contexts() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]any, len(h.calls))
	for i, c := range h.calls {
		out[i] = c.Context
	}
	return out
}
