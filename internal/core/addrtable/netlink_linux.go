//go:build linux

package addrtable

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// ============================================================================
//                              NetlinkProvider
// ============================================================================

// 不可用作源地址的地址标志
const unusableFlags = unix.IFA_F_TENTATIVE | unix.IFA_F_DEPRECATED | unix.IFA_F_DADFAILED

// NetlinkProvider 基于 rtnetlink 的地址表
//
// 接口标识取内核接口索引。
type NetlinkProvider struct {
	handle          *netlink.Handle
	includeLoopback bool

	mu   sync.Mutex
	subs subscribers
	done chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// NewNetlinkProvider 创建 rtnetlink 地址表
func NewNetlinkProvider(includeLoopback bool) (*NetlinkProvider, error) {
	h, err := netlink.NewHandle(unix.NETLINK_ROUTE)
	if err != nil {
		return nil, fmt.Errorf("netlink handle: %w", err)
	}
	return &NetlinkProvider{handle: h, includeLoopback: includeLoopback}, nil
}

// Snapshot 列出全部本地单播地址
func (p *NetlinkProvider) Snapshot(ctx context.Context) ([]types.LocalAddress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	links, err := p.handle.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	names := make(map[int]*netlink.LinkAttrs, len(links))
	for _, l := range links {
		names[l.Attrs().Index] = l.Attrs()
	}

	addrs, err := p.handle.AddrList(nil, netlink.FAMILY_ALL)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}

	out := make([]types.LocalAddress, 0, len(addrs))
	for _, a := range addrs {
		if a.IPNet == nil || a.Flags&unusableFlags != 0 {
			continue
		}
		attrs := names[a.LinkIndex]
		if attrs != nil && attrs.Flags&net.FlagLoopback != 0 && !p.includeLoopback {
			continue
		}
		if a.Scope == unix.RT_SCOPE_HOST && !p.includeLoopback {
			continue
		}
		ip, ok := netip.AddrFromSlice(a.IP)
		if !ok || !unicast(ip.Unmap()) {
			continue
		}

		e := types.LocalAddress{Addr: ip.Unmap(), InterfaceID: uint64(a.LinkIndex)}
		if attrs != nil {
			e.Interface = attrs.Name
		}
		out = append(out, e)
	}
	return out, nil
}

// Subscribe 订阅内核地址变更
//
// 第一个订阅者登记时打开 netlink 订阅，最后一个注销时关闭。
func (p *NetlinkProvider) Subscribe(notify func()) (io.Closer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, _ := p.subs.add(notify)
	if p.done == nil {
		if err := p.subscribeLocked(); err != nil {
			p.subs.remove(id)
			return nil, err
		}
	}

	return closerFunc(func() error {
		p.subs.remove(id)
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.subs.len() == 0 && p.done != nil {
			close(p.done)
			p.done = nil
			p.wg.Wait()
		}
		return nil
	}), nil
}

func (p *NetlinkProvider) subscribeLocked() error {
	ch := make(chan netlink.AddrUpdate, 64)
	done := make(chan struct{})
	err := netlink.AddrSubscribeWithOptions(ch, done, netlink.AddrSubscribeOptions{
		ErrorCallback: func(err error) {
			logger.Warn("地址订阅出错", "err", err)
		},
	})
	if err != nil {
		return fmt.Errorf("subscribe addresses: %w", err)
	}
	p.done = done

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-done:
				return
			case u, ok := <-ch:
				if !ok {
					return
				}
				logger.Debug("地址变更", "addr", u.LinkAddress.String(), "link", u.LinkIndex, "new", u.NewAddr)
				p.subs.notify()
			}
		}
	}()

	logger.Info("地址表订阅已启动")
	return nil
}

// Close 释放 netlink 句柄
func (p *NetlinkProvider) Close() error {
	p.mu.Lock()
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.closeOnce.Do(p.handle.Close)
	return nil
}
