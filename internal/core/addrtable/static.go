package addrtable

import (
	"context"
	"io"
	"sync"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// StaticProvider 静态地址表
type StaticProvider struct {
	mu      sync.RWMutex
	entries []types.LocalAddress
	subs    subscribers
}

// NewStaticProvider 创建静态地址表
func NewStaticProvider(entries ...types.LocalAddress) *StaticProvider {
	return &StaticProvider{entries: normalize(entries)}
}

// Snapshot 返回条目副本
func (p *StaticProvider) Snapshot(_ context.Context) ([]types.LocalAddress, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]types.LocalAddress(nil), p.entries...), nil
}

// Subscribe 登记变更通知
func (p *StaticProvider) Subscribe(notify func()) (io.Closer, error) {
	_, c := p.subs.add(notify)
	return c, nil
}

// Set 替换地址表并通知订阅者
func (p *StaticProvider) Set(entries ...types.LocalAddress) {
	p.mu.Lock()
	p.entries = normalize(entries)
	p.mu.Unlock()
	p.subs.notify()
}

// normalize 去掉无效地址并解除 IPv4 映射
func normalize(entries []types.LocalAddress) []types.LocalAddress {
	out := make([]types.LocalAddress, 0, len(entries))
	for _, e := range entries {
		e.Addr = e.Addr.Unmap()
		if e.Addr.IsValid() {
			out = append(out, e)
		}
	}
	return out
}
