package neighbor

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/internal/mocks"
	"github.com/dep2p/go-fabricat/pkg/types"
)

var (
	local4  = netip.MustParseAddr("192.0.2.1")
	remote4 = netip.MustParseAddr("192.0.2.2")
	local6  = netip.MustParseAddr("2001:db8::1")
	remote6 = netip.MustParseAddr("2001:db8::2")
)

// ============================================================================
//                              StaticResolver
// ============================================================================

// TestStaticResolver 测试静态表
func TestStaticResolver(t *testing.T) {
	s := NewStaticResolver(map[netip.Addr]types.LinkAddress{
		netip.MustParseAddr("::ffff:192.0.2.2"): 0x2AA,
	})
	ctx := context.Background()

	la, err := s.ResolveNeighbor(ctx, local4, remote4)
	require.NoError(t, err)
	assert.Equal(t, types.LinkAddress(0x2AA), la)

	_, err = s.ResolveNeighbor(ctx, local6, remote6)
	assert.ErrorIs(t, err, types.ErrUnreachable)

	s.Set(remote6, 0x2BB)
	la, err = s.ResolveNeighbor(ctx, local6, remote6)
	require.NoError(t, err)
	assert.Equal(t, types.LinkAddress(0x2BB), la)

	s.Delete(remote6)
	_, err = s.ResolveNeighbor(ctx, local6, remote6)
	assert.ErrorIs(t, err, types.ErrUnreachable)

	_, err = s.ResolveNeighbor(ctx, local4, remote6)
	assert.ErrorIs(t, err, types.ErrInvalidAddressFamily)
}

// ============================================================================
//                              CachingResolver
// ============================================================================

// TestCachingResolver_CachesSuccess 测试只缓存成功结果
func TestCachingResolver_CachesSuccess(t *testing.T) {
	inner := mocks.NewMockNeighborResolver()
	inner.Set(remote4, 0x2AA)
	c := NewCachingResolver(inner, 16, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		la, err := c.ResolveNeighbor(ctx, local4, remote4)
		require.NoError(t, err)
		assert.Equal(t, types.LinkAddress(0x2AA), la)
	}
	assert.Equal(t, 1, inner.CallCount())
	assert.Equal(t, 1, c.Len())

	// 失败不缓存
	_, err := c.ResolveNeighbor(ctx, local6, remote6)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = c.ResolveNeighbor(ctx, local6, remote6)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, 3, inner.CallCount())
}

// TestCachingResolver_Invalidate 测试失效
func TestCachingResolver_Invalidate(t *testing.T) {
	inner := mocks.NewMockNeighborResolver()
	inner.Set(remote4, 0x2AA)
	c := NewCachingResolver(inner, 16, time.Minute)
	ctx := context.Background()

	_, _ = c.ResolveNeighbor(ctx, local4, remote4)
	_, _ = c.ResolveNeighbor(ctx, netip.MustParseAddr("192.0.2.9"), remote4)
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, 2, c.Invalidate(remote4))
	assert.Equal(t, 0, c.Len())

	inner.Set(remote4, 0x2CC)
	la, err := c.ResolveNeighbor(ctx, local4, remote4)
	require.NoError(t, err)
	assert.Equal(t, types.LinkAddress(0x2CC), la)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

// ============================================================================
//                              RetryResolver
// ============================================================================

// TestRetryResolver_RetriesIncomplete 测试未完成时重试
func TestRetryResolver_RetriesIncomplete(t *testing.T) {
	inner := mocks.NewMockNeighborResolver()
	attempts := 0
	inner.ResolveNeighborFunc = func(context.Context, netip.Addr, netip.Addr) (types.LinkAddress, error) {
		attempts++
		if attempts < 3 {
			return 0, types.ErrIncomplete
		}
		return 0x2AA, nil
	}

	clk := clock.NewMock()
	r := NewRetryResolver(inner, 100*time.Millisecond, 5).WithClock(clk)

	type result struct {
		la  types.LinkAddress
		err error
	}
	done := make(chan result, 1)
	go func() {
		la, err := r.ResolveNeighbor(context.Background(), local4, remote4)
		done <- result{la, err}
	}()

	var res result
	require.Eventually(t, func() bool {
		clk.Add(100 * time.Millisecond)
		select {
		case res = <-done:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	require.NoError(t, res.err)
	assert.Equal(t, types.LinkAddress(0x2AA), res.la)
	assert.Equal(t, 3, attempts)
}

// TestRetryResolver_GivesUp 测试重试耗尽
func TestRetryResolver_GivesUp(t *testing.T) {
	inner := mocks.NewMockNeighborResolver()
	inner.ResolveNeighborFunc = func(context.Context, netip.Addr, netip.Addr) (types.LinkAddress, error) {
		return 0, types.ErrIncomplete
	}

	r := NewRetryResolver(inner, time.Microsecond, 2)
	_, err := r.ResolveNeighbor(context.Background(), local4, remote4)
	assert.ErrorIs(t, err, types.ErrIncomplete)
	assert.Equal(t, 3, inner.CallCount())
}

// TestRetryResolver_UnreachableImmediate 测试不可达立即返回
func TestRetryResolver_UnreachableImmediate(t *testing.T) {
	inner := mocks.NewMockNeighborResolver()
	inner.ResolveNeighborFunc = func(context.Context, netip.Addr, netip.Addr) (types.LinkAddress, error) {
		return 0, types.ErrUnreachable
	}

	r := NewRetryResolver(inner, time.Hour, 10)
	_, err := r.ResolveNeighbor(context.Background(), local4, remote4)
	assert.ErrorIs(t, err, types.ErrUnreachable)
	assert.Equal(t, 1, inner.CallCount())
}

// TestRetryResolver_ContextCancel 测试等待期间取消
func TestRetryResolver_ContextCancel(t *testing.T) {
	inner := mocks.NewMockNeighborResolver()
	inner.ResolveNeighborFunc = func(context.Context, netip.Addr, netip.Addr) (types.LinkAddress, error) {
		return 0, types.ErrIncomplete
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetryResolver(inner, time.Hour, 10)
	_, err := r.ResolveNeighbor(ctx, local4, remote4)
	assert.True(t, errors.Is(err, context.Canceled))
}

// ============================================================================
//                              装配
// ============================================================================

// TestNew_Chain 测试按配置装配
func TestNew_Chain(t *testing.T) {
	inner := mocks.NewMockNeighborResolver()
	inner.Set(remote4, 0x2AA)

	cfg := config.DefaultNeighborConfig()
	r := New(cfg, inner)
	retry, ok := r.(*RetryResolver)
	require.True(t, ok)
	_, ok = retry.inner.(*CachingResolver)
	assert.True(t, ok)

	cfg.DisableCache = true
	r = New(cfg, inner)
	retry = r.(*RetryResolver)
	assert.Same(t, inner, retry.inner)
	assert.Equal(t, 10, retry.maxRetries)
}
