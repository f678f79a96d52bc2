package mocks

import (
	"context"
	"net/netip"
	"sync"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// NeighborCall 记录 ResolveNeighbor 调用
type NeighborCall struct {
	Local  netip.Addr
	Remote netip.Addr
}

// MockNeighborResolver 模拟 NeighborResolver
type MockNeighborResolver struct {
	mu sync.Mutex

	// Neighbors 远端地址到链路地址的映射，未命中返回 types.ErrNotFound
	Neighbors map[netip.Addr]types.LinkAddress

	// 可覆盖的方法
	ResolveNeighborFunc func(ctx context.Context, local, remote netip.Addr) (types.LinkAddress, error)

	// 调用记录
	Calls []NeighborCall
}

// NewMockNeighborResolver 创建 MockNeighborResolver
func NewMockNeighborResolver() *MockNeighborResolver {
	return &MockNeighborResolver{Neighbors: make(map[netip.Addr]types.LinkAddress)}
}

// ResolveNeighbor 解析邻居
func (m *MockNeighborResolver) ResolveNeighbor(ctx context.Context, local, remote netip.Addr) (types.LinkAddress, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, NeighborCall{Local: local, Remote: remote})
	fn := m.ResolveNeighborFunc
	la, ok := m.Neighbors[remote]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, local, remote)
	}
	if !ok {
		return 0, types.ErrNotFound
	}
	return la, nil
}

// Set 设置邻居条目
func (m *MockNeighborResolver) Set(remote netip.Addr, la types.LinkAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Neighbors[remote] = la
}

// CallCount 返回调用次数
func (m *MockNeighborResolver) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
