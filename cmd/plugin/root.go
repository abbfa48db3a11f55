package plugin

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scope-plugin/pkg/config"
	"github.com/scope-plugin/pkg/report"
)

// newRootCmd 构造完整命令树，每次调用得到独立的 flag 集合
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scope-plugin",
		Short:         "Container monitoring plugin serving a static report over a unix socket",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "配置文件路径（可选）")

	// 注册分组 flag
	initPluginFlags(root)
	initServerFlags(root)
	initLogFlags(root)

	root.AddCommand(
		newVariantCmd(report.VariantInfo, "Serve the plugin descriptor only"),
		newVariantCmd(report.VariantMetadata, "Serve the descriptor plus a static volume_count metric"),
		newConfigCmd(),
	)
	return root
}

func newVariantCmd(v report.Variant, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(v),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlugin(cmd, v)
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfigWithCli(cmd)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// Execute 入口；信号退出返回 0，其余错误输出到 stderr 并返回 1
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
