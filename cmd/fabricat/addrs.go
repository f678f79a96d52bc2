package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/internal/core/addrtable"
)

// newAddrsCmd 列出本地地址表
func newAddrsCmd() *cobra.Command {
	var (
		mode            string
		includeLoopback bool
		asJSON          bool
	)

	cmd := &cobra.Command{
		Use:   "addrs",
		Short: "列出本地地址表（地址 → 接口）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultAddressTableConfig()
			cfg.Mode = config.AddressTableMode(mode)
			cfg.IncludeLoopback = includeLoopback

			prov, err := addrtable.New(cfg)
			if err != nil {
				return err
			}
			if c, ok := prov.(interface{ Close() error }); ok {
				defer func() { _ = c.Close() }()
			}

			entries, err := prov.Snapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
			logger.Debug("地址表快照", "mode", mode, "entries", len(entries),
				"fingerprint", addrtable.Fingerprint(entries))

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tIFINDEX\tINTERFACE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%s\n", e.Addr, e.InterfaceID, e.Interface)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(config.AddressTableNetlink), "地址表来源 (netlink/polling)")
	cmd.Flags().BoolVar(&includeLoopback, "loopback", false, "包含回环地址")
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON 输出")
	return cmd
}
