package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// MockAddressTable 模拟 AddressTableProvider
type MockAddressTable struct {
	mu      sync.Mutex
	entries []types.LocalAddress
	notify  []func()

	// SnapshotErr 非空时 Snapshot 返回该错误
	SnapshotErr error
	// SubscribeErr 非空时 Subscribe 返回该错误
	SubscribeErr error

	// 调用记录
	SnapshotCalls int
}

// NewMockAddressTable 创建带初始条目的 MockAddressTable
func NewMockAddressTable(entries ...types.LocalAddress) *MockAddressTable {
	return &MockAddressTable{entries: entries}
}

// Snapshot 返回当前条目副本
func (m *MockAddressTable) Snapshot(_ context.Context) ([]types.LocalAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SnapshotCalls++
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	return append([]types.LocalAddress(nil), m.entries...), nil
}

// Subscribe 登记变更通知
func (m *MockAddressTable) Subscribe(notify func()) (io.Closer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubscribeErr != nil {
		return nil, m.SubscribeErr
	}
	m.notify = append(m.notify, notify)
	idx := len(m.notify) - 1
	return closerFunc(func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.notify[idx] = nil
		return nil
	}), nil
}

// SetEntries 替换条目但不通知
func (m *MockAddressTable) SetEntries(entries ...types.LocalAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]types.LocalAddress(nil), entries...)
}

// Trigger 向全部订阅者发送变更通知
func (m *MockAddressTable) Trigger() {
	m.mu.Lock()
	fns := append([]func(){}, m.notify...)
	m.mu.Unlock()

	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

// Snapshots 返回 Snapshot 调用次数
func (m *MockAddressTable) Snapshots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SnapshotCalls
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
