package neighbor

import (
	"context"
	"net/netip"
	"sync"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// StaticResolver 静态邻居表
//
// 未登记的远端地址返回 types.ErrUnreachable。
type StaticResolver struct {
	mu    sync.RWMutex
	table map[netip.Addr]types.LinkAddress
}

// NewStaticResolver 创建静态解析器
func NewStaticResolver(entries map[netip.Addr]types.LinkAddress) *StaticResolver {
	s := &StaticResolver{table: make(map[netip.Addr]types.LinkAddress, len(entries))}
	for ip, la := range entries {
		s.table[ip.Unmap()] = la
	}
	return s
}

// Set 登记邻居
func (s *StaticResolver) Set(remote netip.Addr, la types.LinkAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table[remote.Unmap()] = la
}

// Delete 删除邻居
func (s *StaticResolver) Delete(remote netip.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.table, remote.Unmap())
}

// ResolveNeighbor 查表
func (s *StaticResolver) ResolveNeighbor(_ context.Context, local, remote netip.Addr) (types.LinkAddress, error) {
	if _, _, err := types.CheckAddressPair(local, remote); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	la, ok := s.table[remote.Unmap()]
	if !ok {
		return 0, types.ErrUnreachable
	}
	return la, nil
}
