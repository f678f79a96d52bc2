// Package main 提供 fabricat 命令行入口
//
//	fabricat addrs                       列出本地地址表
//	fabricat neigh --local A --remote B  查询邻居链路地址
//	fabricat serve --config file.json    运行解析服务（回环查询 + 诊断端点）
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-fabricat"
	"github.com/dep2p/go-fabricat/pkg/lib/log"
)

var logger = log.Logger("fabricat/cmd")

// globalFlags 全局参数
type globalFlags struct {
	logLevel string
	logJSON  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "fabricat",
		Short:         "fabric 地址解析与路径缓存",
		Version:       fabricat.VersionInfo(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(g)
		},
	}

	root.PersistentFlags().StringVar(&g.logLevel, "log-level", envOr(EnvLogLevel, "info"), "日志级别 (debug/info/warn/error)")
	root.PersistentFlags().BoolVar(&g.logJSON, "log-json", false, "JSON 格式日志")

	root.AddCommand(newAddrsCmd(), newNeighCmd(), newServeCmd())
	return root
}

// setupLogging 设置日志输出
func setupLogging(g *globalFlags) error {
	level, err := log.ParseLevel(g.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", g.logLevel, err)
	}
	if g.logJSON {
		log.SetJSONOutput(os.Stderr)
	} else {
		log.SetOutput(os.Stderr)
	}
	log.SetLevel(level)
	return nil
}
