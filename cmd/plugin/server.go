package plugin

import (
	"github.com/spf13/cobra"

	"github.com/scope-plugin/pkg/config"
)

var defaultCfg = config.NewDefaultConfig()

func initServerFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String("socket.dir", defaultCfg.Socket.Dir, "-> Plugin socket directory (插件socket目录)")
	f.String("socket.path", defaultCfg.Socket.Path, "-> Full socket path, overrides socket.dir (完整socket路径，优先于socket.dir)")
	f.Duration("server.shutdown-timeout", defaultCfg.Server.ShutdownTimeout, "-> Graceful shutdown timeout (优雅关闭超时时间)")

	f.Bool("metrics.enable", defaultCfg.Metrics.Enable, "-> Expose Prometheus metrics on a separate socket (在独立socket上暴露Prometheus指标)")
	f.String("metrics.socket", defaultCfg.Metrics.Socket, "-> Metrics socket path (指标socket路径)")
	f.Bool("metrics.process", defaultCfg.Metrics.Process, "-> Register process collector (注册进程指标)")
}
