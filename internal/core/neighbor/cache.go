package neighbor

import (
	"context"
	"net/netip"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dep2p/go-fabricat/pkg/interfaces"
	"github.com/dep2p/go-fabricat/pkg/types"
)

// ============================================================================
//                              CachingResolver
// ============================================================================

// pairKey 缓存键
type pairKey struct {
	local  netip.Addr
	remote netip.Addr
}

// CachingResolver 邻居解析缓存
//
// 只缓存成功结果；未完成、不可达和错误都直接透传，下次调用重新解析。
type CachingResolver struct {
	inner interfaces.NeighborResolver
	cache *expirable.LRU[pairKey, types.LinkAddress]
}

// NewCachingResolver 创建缓存装饰器
func NewCachingResolver(inner interfaces.NeighborResolver, size int, ttl time.Duration) *CachingResolver {
	return &CachingResolver{
		inner: inner,
		cache: expirable.NewLRU[pairKey, types.LinkAddress](size, nil, ttl),
	}
}

// ResolveNeighbor 先查缓存，未命中时调用下层解析器
func (c *CachingResolver) ResolveNeighbor(ctx context.Context, local, remote netip.Addr) (types.LinkAddress, error) {
	key := pairKey{local: local.Unmap(), remote: remote.Unmap()}
	if la, ok := c.cache.Get(key); ok {
		return la, nil
	}

	la, err := c.inner.ResolveNeighbor(ctx, local, remote)
	if err != nil {
		return 0, err
	}
	c.cache.Add(key, la)
	return la, nil
}

// Invalidate 删除与 remote 相关的全部缓存条目
func (c *CachingResolver) Invalidate(remote netip.Addr) int {
	remote = remote.Unmap()
	n := 0
	for _, k := range c.cache.Keys() {
		if k.remote == remote && c.cache.Remove(k) {
			n++
		}
	}
	return n
}

// Purge 清空缓存
func (c *CachingResolver) Purge() {
	c.cache.Purge()
}

// Len 返回缓存条目数
func (c *CachingResolver) Len() int {
	return c.cache.Len()
}
