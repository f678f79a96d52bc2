package mocks

import (
	"sync"

	"github.com/dep2p/go-fabricat/pkg/interfaces"
	"github.com/dep2p/go-fabricat/pkg/types"
)

// SubmitCall 记录 SubmitQuery 调用
type SubmitCall struct {
	Handle interfaces.QueryHandle
	Query  interfaces.PathQuery
}

// MockPathQueryClient 模拟 PathQueryClient
//
// 提交的查询保持未完成，直到测试调用 Complete。
type MockPathQueryClient struct {
	mu      sync.Mutex
	next    interfaces.QueryHandle
	pending map[interfaces.QueryHandle]interfaces.QueryCompletion

	// SubmitErr 非空时 SubmitQuery 直接返回该错误
	SubmitErr error
	// CompleteOnCancel 为 true 时 CancelQuery 立即以 QueryCancelled 完成查询
	CompleteOnCancel bool

	// 可覆盖的方法
	SubmitQueryFunc func(q interfaces.PathQuery, done interfaces.QueryCompletion) (interfaces.QueryHandle, error)

	// 调用记录
	SubmitCalls []SubmitCall
	CancelCalls []interfaces.QueryHandle
}

// NewMockPathQueryClient 创建 MockPathQueryClient
func NewMockPathQueryClient() *MockPathQueryClient {
	return &MockPathQueryClient{
		pending: make(map[interfaces.QueryHandle]interfaces.QueryCompletion),
	}
}

// SubmitQuery 提交查询
func (m *MockPathQueryClient) SubmitQuery(q interfaces.PathQuery, done interfaces.QueryCompletion) (interfaces.QueryHandle, error) {
	if m.SubmitQueryFunc != nil {
		return m.SubmitQueryFunc(q, done)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return 0, m.SubmitErr
	}
	m.next++
	m.pending[m.next] = done
	m.SubmitCalls = append(m.SubmitCalls, SubmitCall{Handle: m.next, Query: q})
	return m.next, nil
}

// CancelQuery 取消查询
func (m *MockPathQueryClient) CancelQuery(h interfaces.QueryHandle) {
	m.mu.Lock()
	m.CancelCalls = append(m.CancelCalls, h)
	complete := m.CompleteOnCancel
	m.mu.Unlock()

	if complete {
		m.Complete(h, interfaces.QueryResult{Status: types.QueryCancelled})
	}
}

// Complete 以给定结果完成查询，返回查询是否存在
func (m *MockPathQueryClient) Complete(h interfaces.QueryHandle, res interfaces.QueryResult) bool {
	m.mu.Lock()
	done, ok := m.pending[h]
	delete(m.pending, h)
	m.mu.Unlock()

	if !ok {
		return false
	}
	done(res)
	return true
}

// Succeed 以路径记录成功完成查询
func (m *MockPathQueryClient) Succeed(h interfaces.QueryHandle, path types.PathRecord) bool {
	return m.Complete(h, interfaces.QueryResult{Status: types.QuerySuccess, Path: path})
}

// SucceedAll 以同一路径记录完成全部未完成查询，返回完成数
func (m *MockPathQueryClient) SucceedAll(path types.PathRecord) int {
	m.mu.Lock()
	handles := make([]interfaces.QueryHandle, 0, len(m.pending))
	for h := range m.pending {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	n := 0
	for _, h := range handles {
		if m.Succeed(h, path) {
			n++
		}
	}
	return n
}

// Last 返回最近一次提交的句柄
func (m *MockPathQueryClient) Last() interfaces.QueryHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next
}

// Submits 返回成功提交的次数
func (m *MockPathQueryClient) Submits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SubmitCalls)
}

// Cancels 返回 CancelQuery 调用记录的副本
func (m *MockPathQueryClient) Cancels() []interfaces.QueryHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interfaces.QueryHandle(nil), m.CancelCalls...)
}

// Outstanding 返回未完成查询数
func (m *MockPathQueryClient) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// SubmittedQuery 返回第 i 次提交的查询
func (m *MockPathQueryClient) SubmittedQuery(i int) interfaces.PathQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SubmitCalls[i].Query
}
