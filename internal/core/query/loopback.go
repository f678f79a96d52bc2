package query

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fabricat/pkg/interfaces"
	"github.com/dep2p/go-fabricat/pkg/types"
)

// ============================================================================
//                              LoopbackClient
// ============================================================================

// LoopbackClient 进程内路径查询客户端
type LoopbackClient struct {
	delay time.Duration
	clock clock.Clock

	mu       sync.Mutex
	next     interfaces.QueryHandle
	pending  map[interfaces.QueryHandle]*pendingQuery
	paths    map[types.FabricID]types.PathRecord
	statuses map[types.FabricID]types.QueryStatus
	template *types.PathRecord
	closed   bool
}

type pendingQuery struct {
	q     interfaces.PathQuery
	done  interfaces.QueryCompletion
	timer *clock.Timer
}

// NewLoopbackClient 创建回环客户端
func NewLoopbackClient(delay time.Duration) *LoopbackClient {
	return &LoopbackClient{
		delay:    delay,
		clock:    clock.New(),
		pending:  make(map[interfaces.QueryHandle]*pendingQuery),
		paths:    make(map[types.FabricID]types.PathRecord),
		statuses: make(map[types.FabricID]types.QueryStatus),
	}
}

// WithClock 替换时钟（测试用），必须在提交查询前调用
func (c *LoopbackClient) WithClock(clk clock.Clock) *LoopbackClient {
	c.clock = clk
	return c
}

// SetPath 为目的端配置路径记录
func (c *LoopbackClient) SetPath(dest types.FabricID, p types.PathRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[dest] = p
	delete(c.statuses, dest)
}

// SetStatus 令目的端的查询以给定状态完成（注入超时等故障）
func (c *LoopbackClient) SetStatus(dest types.FabricID, s types.QueryStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[dest] = s
}

// RemovePath 删除目的端配置
func (c *LoopbackClient) RemovePath(dest types.FabricID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.paths, dest)
	delete(c.statuses, dest)
}

// SetTemplate 设置未配置目的端的合成模板
//
// 合成的记录取查询的 SGID、DGID 与分区键，DLID 取目的端
// 接口标识的低 16 位。
func (c *LoopbackClient) SetTemplate(tmpl types.PathRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.template = &tmpl
}

// SubmitQuery 提交查询，在延迟后完成
func (c *LoopbackClient) SubmitQuery(q interfaces.PathQuery, done interfaces.QueryCompletion) (interfaces.QueryHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, types.ErrClosed
	}

	c.next++
	h := c.next
	pq := &pendingQuery{q: q, done: done}
	c.pending[h] = pq
	pq.timer = c.clock.AfterFunc(c.delay, func() {
		c.answer(h)
	})
	return h, nil
}

// CancelQuery 取消查询
//
// 查询仍未应答时立即以 QueryCancelled 完成；已应答的句柄被忽略。
func (c *LoopbackClient) CancelQuery(h interfaces.QueryHandle) {
	c.mu.Lock()
	pq, ok := c.pending[h]
	if ok {
		delete(c.pending, h)
		pq.timer.Stop()
	}
	c.mu.Unlock()

	if ok {
		pq.done(interfaces.QueryResult{Status: types.QueryCancelled})
	}
}

// Outstanding 返回未完成查询数
func (c *LoopbackClient) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close 以 QueryCancelled 完成全部未完成查询，之后的提交返回 ErrClosed
func (c *LoopbackClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[interfaces.QueryHandle]*pendingQuery)
	c.mu.Unlock()

	for _, pq := range pending {
		pq.timer.Stop()
		pq.done(interfaces.QueryResult{Status: types.QueryCancelled})
	}
	if len(pending) > 0 {
		logger.Debug("关闭时取消未完成查询", "count", len(pending))
	}
	return nil
}

// answer 定时器到期时应答
func (c *LoopbackClient) answer(h interfaces.QueryHandle) {
	c.mu.Lock()
	pq, ok := c.pending[h]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, h)
	res := c.lookupLocked(pq.q)
	c.mu.Unlock()

	logger.Debug("回环查询完成", "dgid", pq.q.Dest, "status", res.Status)
	pq.done(res)
}

func (c *LoopbackClient) lookupLocked(q interfaces.PathQuery) interfaces.QueryResult {
	if s, ok := c.statuses[q.Dest]; ok && s != types.QuerySuccess {
		return interfaces.QueryResult{Status: s}
	}
	if p, ok := c.paths[q.Dest]; ok {
		return interfaces.QueryResult{Status: types.QuerySuccess, Path: p}
	}
	if c.template != nil {
		p := *c.template
		p.SGID = q.Source
		p.DGID = q.Dest
		p.PKey = q.PKey
		p.DLID = uint16(q.Dest.InterfaceID())
		return interfaces.QueryResult{Status: types.QuerySuccess, Path: p}
	}
	return interfaces.QueryResult{Status: types.QueryFailed, Err: types.ErrUnreachable}
}
