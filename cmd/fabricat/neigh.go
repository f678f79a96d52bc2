package main

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/internal/core/neighbor"
)

// newNeighCmd 查询远端 IP 的链路地址
func newNeighCmd() *cobra.Command {
	var (
		local   string
		remote  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "neigh",
		Short: "通过内核邻居表解析远端链路地址",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := netip.ParseAddr(local)
			if err != nil {
				return fmt.Errorf("--local: %w", err)
			}
			r, err := netip.ParseAddr(remote)
			if err != nil {
				return fmt.Errorf("--remote: %w", err)
			}

			base, err := neighbor.NewNetlinkResolver()
			if err != nil {
				return err
			}
			defer func() { _ = base.Close() }()

			cfg := config.DefaultNeighborConfig()
			cfg.DisableCache = true
			res := neighbor.New(cfg, base)

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			la, err := res.ResolveNeighbor(ctx, l, r)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", r, err)
			}
			fmt.Println(la)
			return nil
		},
	}

	cmd.Flags().StringVar(&local, "local", "", "本地 IP 地址")
	cmd.Flags().StringVar(&remote, "remote", "", "远端 IP 地址")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "解析超时")
	_ = cmd.MarkFlagRequired("local")
	_ = cmd.MarkFlagRequired("remote")
	return cmd
}
