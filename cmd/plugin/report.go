package plugin

import (
	"github.com/spf13/cobra"
)

func initPluginFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String("plugin.id", defaultCfg.Plugin.ID, "-> Plugin id, also the socket file name | 插件ID，同时决定socket文件名")
	f.String("plugin.label", defaultCfg.Plugin.Label, "-> Plugin label | 展示名称")
	f.String("plugin.description", defaultCfg.Plugin.Description, "-> Plugin description | 插件描述")

	reportPrefix := "report."
	f.String(reportPrefix+"node-id", defaultCfg.Report.NodeID, "-> Container node id | 容器节点ID")
	f.String(reportPrefix+"metric-name", defaultCfg.Report.MetricName, "-> Metric key | 指标名")
	f.String(reportPrefix+"metric-label", defaultCfg.Report.MetricLabel, "-> Metric label shown in the UI | UI展示名")
	f.String(reportPrefix+"value", defaultCfg.Report.Value, "-> Metric value | 指标值")
	f.Float64(reportPrefix+"priority", defaultCfg.Report.Priority, "-> Display priority, >10 hidden | 展示优先级，大于10隐藏")

	f.Bool("banner", defaultCfg.Banner, "-> Print startup banner | 启动时打印banner")
}
