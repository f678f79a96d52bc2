package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-fabricat"
	"github.com/dep2p/go-fabricat/pkg/types"
)

// newServeCmd 运行解析服务
func newServeCmd() *cobra.Command {
	var (
		configFile     string
		introspectAddr string
		noLoopback     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "注册配置中的端口并运行解析服务，直到收到退出信号",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// ═══════════════════════════════════════════════════════════
			// 1. 配置文件 → 环境变量 → 命令行参数
			// ═══════════════════════════════════════════════════════════
			cfg := &serveConfig{}
			if configFile != "" {
				var err error
				if cfg, err = loadConfigFile(configFile); err != nil {
					return fmt.Errorf("加载配置文件失败: %w", err)
				}
			}
			applyEnvOverrides(cfg)

			opts := []fabricat.Option{fabricat.WithConfig(&cfg.UserConfig)}
			if !noLoopback && cfg.Loopback == nil {
				opts = append(opts, fabricat.WithLoopbackQueries())
			}
			if cmd.Flags().Changed("introspect") {
				opts = append(opts, fabricat.WithIntrospect(true), fabricat.WithIntrospectAddr(introspectAddr))
			}

			// ═══════════════════════════════════════════════════════════
			// 2. 启动
			// ═══════════════════════════════════════════════════════════
			logger.Info("启动 fabricat", "version", fabricat.Version, "commit", fabricat.GitCommit)
			t, err := fabricat.Start(cmd.Context(), opts...)
			if err != nil {
				return fmt.Errorf("启动失败: %w", err)
			}
			defer func() { _ = t.Close() }()

			owner := types.NewOwnerID()
			for _, p := range cfg.Ports {
				reg, err := p.registration(owner)
				if err != nil {
					return fmt.Errorf("port %s: %w", p.LinkAddress, err)
				}
				if _, err := t.Register(reg); err != nil {
					return fmt.Errorf("register %s: %w", reg.LinkAddress, err)
				}
			}

			printSummary(t)

			// ═══════════════════════════════════════════════════════════
			// 3. 等待退出信号
			// ═══════════════════════════════════════════════════════════
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			fmt.Println("\n正在关闭...")
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", envOr(EnvConfig, ""), "配置文件路径 (JSON)")
	cmd.Flags().StringVar(&introspectAddr, "introspect", "127.0.0.1:6070", "启用诊断服务并监听该地址")
	cmd.Flags().BoolVar(&noLoopback, "no-loopback", false, "不使用回环查询客户端（缓存端口将无法注册）")
	return cmd
}

// printSummary 打印启动摘要
func printSummary(t *fabricat.Translator) {
	fmt.Printf("%s\n", fabricat.VersionInfo())
	fmt.Printf("本地地址: %d\n", len(t.Addresses()))
	for _, p := range t.Ports() {
		fmt.Printf("端口 %s  iface=%d  kind=%s  gid=%s\n", p.LinkAddress, p.InterfaceID, p.Kind, p.Source)
	}
	if addr := t.IntrospectAddr(); addr != "" {
		fmt.Printf("诊断服务: http://%s/debug/fabricat\n", addr)
	}
	fmt.Println("按 Ctrl+C 退出")
}
