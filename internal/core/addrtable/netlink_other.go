//go:build !linux

package addrtable

import (
	"context"
	"errors"
	"io"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// ErrUnsupported 当前平台不支持 rtnetlink
var ErrUnsupported = errors.New("addrtable: netlink provider requires linux")

// NetlinkProvider 非 Linux 平台占位
type NetlinkProvider struct{}

// NewNetlinkProvider 在非 Linux 平台返回 ErrUnsupported
func NewNetlinkProvider(bool) (*NetlinkProvider, error) {
	return nil, ErrUnsupported
}

// Snapshot 总是返回 ErrUnsupported
func (p *NetlinkProvider) Snapshot(context.Context) ([]types.LocalAddress, error) {
	return nil, ErrUnsupported
}

// Subscribe 总是返回 ErrUnsupported
func (p *NetlinkProvider) Subscribe(func()) (io.Closer, error) {
	return nil, ErrUnsupported
}

// Close 无操作
func (p *NetlinkProvider) Close() error { return nil }
