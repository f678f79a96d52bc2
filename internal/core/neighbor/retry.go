package neighbor

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fabricat/pkg/interfaces"
	"github.com/dep2p/go-fabricat/pkg/types"
)

// ============================================================================
//                              RetryResolver
// ============================================================================

// RetryResolver 对 types.ErrIncomplete 重试的装饰器
//
// 最多重试 maxRetries 次，每次间隔 interval；仍未完成时返回 types.ErrIncomplete。
// 其他结果立即返回。
type RetryResolver struct {
	inner      interfaces.NeighborResolver
	interval   time.Duration
	maxRetries int
	clock      clock.Clock
}

// NewRetryResolver 创建重试装饰器
func NewRetryResolver(inner interfaces.NeighborResolver, interval time.Duration, maxRetries int) *RetryResolver {
	return &RetryResolver{
		inner:      inner,
		interval:   interval,
		maxRetries: maxRetries,
		clock:      clock.New(),
	}
}

// WithClock 替换时钟（测试用）
func (r *RetryResolver) WithClock(clk clock.Clock) *RetryResolver {
	r.clock = clk
	return r
}

// ResolveNeighbor 解析邻居，未完成时等待后重试
func (r *RetryResolver) ResolveNeighbor(ctx context.Context, local, remote netip.Addr) (types.LinkAddress, error) {
	for attempt := 0; ; attempt++ {
		la, err := r.inner.ResolveNeighbor(ctx, local, remote)
		if !errors.Is(err, types.ErrIncomplete) {
			return la, err
		}
		if attempt >= r.maxRetries {
			logger.Debug("邻居解析重试耗尽", "remote", remote, "attempts", attempt+1)
			return 0, err
		}

		t := r.clock.Timer(r.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return 0, ctx.Err()
		case <-t.C:
		}
	}
}
