package route

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-fabricat/internal/core/metrics"
	"github.com/dep2p/go-fabricat/internal/mocks"
	"github.com/dep2p/go-fabricat/pkg/interfaces"
	"github.com/dep2p/go-fabricat/pkg/types"
)

// ============================================================================
//                              辅助函数
// ============================================================================

const testDest types.LinkAddress = 0x0002c9030000abcd

var (
	testSGID = types.NewFabricID(0xfe80000000000000, 0x0002c90300001111)
	testDGID = types.NewFabricID(0xfe80000000000000, uint64(testDest))
)

func testPath() types.PathRecord {
	return types.PathRecord{SGID: testSGID, DGID: testDGID, SLID: 1, DLID: 7, PKey: 0xffff, MTU: 4}
}

func newTestRoute(t *testing.T, client interfaces.PathQueryClient) (*Route, *bool) {
	t.Helper()
	freed := new(bool)
	r := New(Config{
		Dest:   testDest,
		Query:  interfaces.PathQuery{Source: testSGID, Dest: testDGID, PKey: 0xffff},
		Client: client,
		OnFree: func(*Route) { *freed = true },
	})
	return r, freed
}

// ============================================================================
//                              解析与合并
// ============================================================================

// TestRoute_FirstResolveSubmitsQuery 测试 Unresolved 时提交查询
func TestRoute_FirstResolveSubmitsQuery(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	_, err := r.Resolve(h, "c1")
	assert.ErrorIs(t, err, types.ErrPending)
	assert.Equal(t, types.RoutePending, r.State())
	require.Equal(t, 1, client.Submits())

	q := client.SubmittedQuery(0)
	assert.Equal(t, testSGID, q.Source)
	assert.Equal(t, testDGID, q.Dest)
	assert.Equal(t, uint16(0xffff), q.PKey)

	// 映射引用 + 查询引用
	assert.Equal(t, int32(2), r.Refs())
}

// TestRoute_CoalescesConcurrentResolves 测试并发解析只产生一次查询
func TestRoute_CoalescesConcurrentResolves(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	for _, ctx := range []string{"c1", "c2", "c3"} {
		_, err := r.Resolve(h, ctx)
		assert.ErrorIs(t, err, types.ErrPending)
	}
	assert.Equal(t, 1, client.Submits())
	assert.Equal(t, 3, r.WaiterCount())

	require.True(t, client.Succeed(client.Last(), testPath()))

	assert.Equal(t, []any{"c1", "c2", "c3"}, h.Contexts())
	for _, c := range h.Calls() {
		assert.NoError(t, c.Err)
		assert.Equal(t, testPath(), c.Path)
	}
	assert.Equal(t, types.RouteResolved, r.State())
	assert.Equal(t, 0, r.WaiterCount())
}

// TestRoute_ParallelResolvesSingleQuery 测试多 goroutine 并发解析
func TestRoute_ParallelResolvesSingleQuery(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()
	h.C = make(chan mocks.Resolution, 100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Resolve(h, i)
			assert.ErrorIs(t, err, types.ErrPending)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, client.Submits())
	client.Succeed(client.Last(), testPath())
	assert.Equal(t, 50, h.Count())
}

// TestRoute_CacheHit 测试 Resolved 时同步返回
func TestRoute_CacheHit(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	_, _ = r.Resolve(h, "c1")
	client.Succeed(client.Last(), testPath())

	path, err := r.Resolve(h, "c2")
	require.NoError(t, err)
	assert.Equal(t, testPath(), path)
	assert.Equal(t, 1, client.Submits())
	// c2 不触发回调
	assert.Equal(t, 1, h.Count())
	// 查询引用已释放
	assert.Equal(t, int32(1), r.Refs())
}

// ============================================================================
//                              失败分类
// ============================================================================

// TestClassify 测试完成状态映射
func TestClassify(t *testing.T) {
	cause := errors.New("mad status 0x0c")
	tests := []struct {
		name   string
		res    interfaces.QueryResult
		target error
	}{
		{"成功", interfaces.QueryResult{Status: types.QuerySuccess, Path: testPath()}, nil},
		{"取消", interfaces.QueryResult{Status: types.QueryCancelled}, types.ErrUnreachable},
		{"被替代", interfaces.QueryResult{Status: types.QuerySuperseded}, types.ErrUnreachable},
		{"超时", interfaces.QueryResult{Status: types.QueryTimedOut}, types.ErrTimeout},
		{"失败", interfaces.QueryResult{Status: types.QueryFailed, Err: cause}, types.ErrQueryFailed},
		{"失败无原因", interfaces.QueryResult{Status: types.QueryFailed}, types.ErrQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := Classify(tt.res)
			if tt.target == nil {
				assert.NoError(t, err)
				assert.Equal(t, testPath(), path)
				return
			}
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, path.IsZero())
		})
	}

	_, err := Classify(interfaces.QueryResult{Status: types.QueryFailed, Err: cause})
	assert.ErrorIs(t, err, cause)
}

// TestRoute_FailureReturnsToUnresolved 测试失败后回到 Unresolved 且可重试
func TestRoute_FailureReturnsToUnresolved(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	_, _ = r.Resolve(h, "c1")
	_, _ = r.Resolve(h, "c2")
	client.Complete(client.Last(), interfaces.QueryResult{Status: types.QueryTimedOut})

	calls := h.Calls()
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.ErrorIs(t, c.Err, types.ErrTimeout)
	}
	assert.Equal(t, types.RouteUnresolved, r.State())

	// 下一次解析提交新查询
	_, err := r.Resolve(h, "c3")
	assert.ErrorIs(t, err, types.ErrPending)
	assert.Equal(t, 2, client.Submits())
}

// ============================================================================
//                              提交失败
// ============================================================================

// TestRoute_SubmitFailureIsSynchronous 测试提交失败同步返回且无回调
func TestRoute_SubmitFailureIsSynchronous(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	client.SubmitErr = types.ErrInsufficientResources
	r, freed := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	_, err := r.Resolve(h, "c1")
	assert.ErrorIs(t, err, types.ErrInsufficientResources)
	assert.Equal(t, types.RouteUnresolved, r.State())
	assert.Equal(t, 0, r.WaiterCount())
	assert.Equal(t, 0, h.Count())
	assert.Equal(t, int32(1), r.Refs())
	assert.False(t, *freed)
}

// TestRoute_SubmitFailureNotifiesJoiners 测试提交窗口内加入的等待者收到失败回调
func TestRoute_SubmitFailureNotifiesJoiners(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()
	joiner := mocks.NewRecordingHandler()

	client.SubmitQueryFunc = func(interfaces.PathQuery, interfaces.QueryCompletion) (interfaces.QueryHandle, error) {
		// 模拟提交进行中另一调用者加入
		_, err := r.Resolve(joiner, "late")
		assert.ErrorIs(t, err, types.ErrPending)
		return 0, types.ErrInsufficientResources
	}

	_, err := r.Resolve(h, "c1")
	assert.ErrorIs(t, err, types.ErrInsufficientResources)
	assert.Equal(t, 0, h.Count())

	calls := joiner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "late", calls[0].Context)
	assert.ErrorIs(t, calls[0].Err, types.ErrInsufficientResources)
}

// TestRoute_SynchronousCompletion 测试客户端在 SubmitQuery 内完成查询
func TestRoute_SynchronousCompletion(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	client.SubmitQueryFunc = func(_ interfaces.PathQuery, done interfaces.QueryCompletion) (interfaces.QueryHandle, error) {
		done(interfaces.QueryResult{Status: types.QuerySuccess, Path: testPath()})
		return 42, nil
	}

	_, err := r.Resolve(h, "c1")
	assert.ErrorIs(t, err, types.ErrPending)
	require.Equal(t, 1, h.Count())
	assert.Equal(t, types.RouteResolved, r.State())
	assert.Equal(t, int32(1), r.Refs())
}

// ============================================================================
//                              取消
// ============================================================================

// TestRoute_CancelRemovesFirstMatch 测试取消只移除第一个匹配
func TestRoute_CancelRemovesFirstMatch(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	_, _ = r.Resolve(h, "dup")
	_, _ = r.Resolve(h, "dup")
	_, _ = r.Resolve(h, "other")

	require.NoError(t, r.Cancel(h, "dup"))
	assert.Equal(t, 2, r.WaiterCount())

	client.Succeed(client.Last(), testPath())
	assert.Equal(t, []any{"dup", "other"}, h.Contexts())
}

// TestRoute_CancelLastWaiterKeepsQuery 测试取消最后一个等待者不取消查询
func TestRoute_CancelLastWaiterKeepsQuery(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	_, _ = r.Resolve(h, "c1")
	require.NoError(t, r.Cancel(h, "c1"))

	assert.Empty(t, client.Cancels())
	assert.Equal(t, types.RoutePending, r.State())

	client.Succeed(client.Last(), testPath())
	assert.Equal(t, 0, h.Count())
	assert.Equal(t, types.RouteResolved, r.State())
}

// TestRoute_CancelNotFound 测试取消不存在的等待者
func TestRoute_CancelNotFound(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()
	other := mocks.NewRecordingHandler()

	_, _ = r.Resolve(h, "c1")

	assert.ErrorIs(t, r.Cancel(h, "c2"), types.ErrNotFound)
	assert.ErrorIs(t, r.Cancel(other, "c1"), types.ErrNotFound)
	// 不可比较的上下文不匹配任何等待者
	assert.ErrorIs(t, r.Cancel(h, []int{1}), types.ErrNotFound)
	assert.Equal(t, 1, r.WaiterCount())
}

// boxedCtx 静态可比较、动态值可能不可比较的上下文
type boxedCtx struct {
	v any
}

// TestRoute_CancelUncomparableDynamicContext 测试 any 字段中持有切片的上下文
func TestRoute_CancelUncomparableDynamicContext(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	ctx := boxedCtx{v: []int{1}}
	_, err := r.Resolve(h, ctx)
	require.ErrorIs(t, err, types.ErrPending)

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, r.Cancel(h, ctx), types.ErrNotFound)
		assert.ErrorIs(t, r.Cancel(h, boxedCtx{v: 1}), types.ErrNotFound)
	})
	assert.Equal(t, 1, r.WaiterCount())

	// 动态值可比较时按值匹配
	_, err = r.Resolve(h, boxedCtx{v: 7})
	require.ErrorIs(t, err, types.ErrPending)
	assert.NoError(t, r.Cancel(h, boxedCtx{v: 7}))
	assert.Equal(t, 1, r.WaiterCount())
}

// TestRoute_CancelFromCallback 测试回调中重入 Cancel
func TestRoute_CancelFromCallback(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()
	h.OnResolvedFunc = func(ctx any, _ types.PathRecord, _ error) {
		// 等待者已摘下，重入取消找不到
		assert.ErrorIs(t, r.Cancel(h, ctx), types.ErrNotFound)
	}

	_, _ = r.Resolve(h, "c1")
	client.Succeed(client.Last(), testPath())
	assert.Equal(t, 1, h.Count())
}

// ============================================================================
//                              驱逐与引用计数
// ============================================================================

// TestRoute_ShutdownWithOutstandingQuery 测试驱逐后迟到的完成被孤立 Route 吸收
func TestRoute_ShutdownWithOutstandingQuery(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, freed := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	_, _ = r.Resolve(h, "c1")
	handle := client.Last()

	r.Shutdown()
	r.Release()

	assert.Equal(t, []interfaces.QueryHandle{handle}, client.Cancels())
	calls := h.Calls()
	require.Len(t, calls, 1)
	assert.ErrorIs(t, calls[0].Err, types.ErrUnreachable)

	// 查询引用仍持有
	assert.False(t, *freed)
	assert.False(t, r.Freed())

	client.Complete(handle, interfaces.QueryResult{Status: types.QueryCancelled})
	assert.True(t, *freed)
	assert.True(t, r.Freed())
	// 完成不产生额外回调
	assert.Equal(t, 1, h.Count())
}

// TestRoute_ShutdownIdle 测试无查询时驱逐立即终结
func TestRoute_ShutdownIdle(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, freed := newTestRoute(t, client)

	r.Shutdown()
	r.Shutdown()
	assert.Empty(t, client.Cancels())

	r.Release()
	assert.True(t, *freed)

	// 多余的 Release 被忽略
	r.Release()
	assert.True(t, r.Freed())
}

// TestRoute_ResolveAfterShutdown 测试驱逐后解析返回 ErrRetired
func TestRoute_ResolveAfterShutdown(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	r.Shutdown()
	_, err := r.Resolve(h, "c1")
	assert.ErrorIs(t, err, ErrRetired)
	assert.Equal(t, 0, client.Submits())
}

// TestRoute_ShutdownDuringSubmit 测试提交窗口内驱逐
func TestRoute_ShutdownDuringSubmit(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	r, freed := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	var completion interfaces.QueryCompletion
	client.SubmitQueryFunc = func(_ interfaces.PathQuery, done interfaces.QueryCompletion) (interfaces.QueryHandle, error) {
		completion = done
		r.Shutdown()
		return 9, nil
	}

	_, err := r.Resolve(h, "c1")
	assert.ErrorIs(t, err, types.ErrPending)
	// 提交返回后补发取消
	assert.Equal(t, []interfaces.QueryHandle{9}, client.Cancels())
	require.Equal(t, 1, h.Count())
	assert.ErrorIs(t, h.Calls()[0].Err, types.ErrUnreachable)

	r.Release()
	assert.False(t, *freed)
	completion(interfaces.QueryResult{Status: types.QueryCancelled})
	assert.True(t, *freed)
	assert.Equal(t, 1, h.Count())
}

// ============================================================================
//                              迁移
// ============================================================================

// TestRoute_RestartWithMigratedWaiters 测试迁移等待者到新 Route
func TestRoute_RestartWithMigratedWaiters(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	old, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	_, _ = old.Resolve(h, "c1")
	_, _ = old.Resolve(h, "c2")
	oldHandle := client.Last()

	ws := old.TakeWaiters()
	require.Len(t, ws, 2)
	old.Shutdown()
	old.Release()

	next, _ := newTestRoute(t, client)
	require.NoError(t, next.Restart(ws))
	assert.Equal(t, types.RoutePending, next.State())
	assert.Equal(t, 2, client.Submits())

	// 旧查询的迟到结果不影响新 Route
	client.Succeed(oldHandle, testPath())
	assert.Equal(t, 0, h.Count())

	client.Succeed(client.Last(), testPath())
	assert.Equal(t, []any{"c1", "c2"}, h.Contexts())
}

// TestRoute_RestartSubmitFailure 测试迁移后提交失败同步通知
func TestRoute_RestartSubmitFailure(t *testing.T) {
	client := mocks.NewMockPathQueryClient()
	client.SubmitErr = types.ErrInsufficientResources
	r, _ := newTestRoute(t, client)
	h := mocks.NewRecordingHandler()

	err := r.Restart([]Waiter{{Handler: h, Context: "m1"}})
	assert.ErrorIs(t, err, types.ErrInsufficientResources)

	calls := h.Calls()
	require.Len(t, calls, 1)
	assert.ErrorIs(t, calls[0].Err, types.ErrInsufficientResources)
}

// ============================================================================
//                              指标
// ============================================================================

// TestRoute_Metrics 测试指标记录
func TestRoute_Metrics(t *testing.T) {
	m, err := metrics.New("test", nil)
	require.NoError(t, err)

	client := mocks.NewMockPathQueryClient()
	r := New(Config{
		Dest:    testDest,
		Query:   interfaces.PathQuery{Source: testSGID, Dest: testDGID},
		Client:  client,
		Metrics: m,
	})
	h := mocks.NewRecordingHandler()

	_, _ = r.Resolve(h, "c1")
	_, _ = r.Resolve(h, "c2")
	client.Succeed(client.Last(), testPath())
	_, _ = r.Resolve(h, "c3")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits()))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheMisses()))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Queries()))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.WaitersNotifiedCounter()))
}
