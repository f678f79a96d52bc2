package interfaces

import (
	"context"
	"io"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// AddressTableProvider 本地单播地址表提供者
type AddressTableProvider interface {
	// Snapshot 获取当前本地单播地址表
	Snapshot(ctx context.Context) ([]types.LocalAddress, error)

	// Subscribe 注册地址变化通知
	//
	// 每次地址表可能发生变化时调用 notify；调用方应重新 Snapshot。
	// 关闭返回的 io.Closer 取消订阅。
	Subscribe(notify func()) (io.Closer, error)
}
