package plugin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scope-plugin/pkg/config"
	"github.com/scope-plugin/pkg/lifecycle"
	"github.com/scope-plugin/pkg/logger"
	"github.com/scope-plugin/pkg/metrics"
	"github.com/scope-plugin/pkg/report"
	"github.com/scope-plugin/pkg/responder"
	"github.com/scope-plugin/pkg/signal"
	"github.com/scope-plugin/pkg/util"
)

func runPlugin(cmd *cobra.Command, variant report.Variant) error {
	// 1，加载配置
	cfg, err := config.LoadConfigWithCli(cmd)
	if err != nil {
		return err
	}

	// 2，初始化日志
	log, err := logger.Init(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.SetDefaultComponent(string(variant))

	if cfg.Banner {
		_ = util.PrintBanner(cmd.OutOrStdout(), cfg.Plugin.ID, "ColorBlue")
	}
	logger.Info("log initialization successful",
		zap.String("path", cfg.Log.Path), zap.String("level", cfg.Log.Level), zap.String("format", cfg.Log.Format))
	if facts, err := util.CollectHostFacts(cmd.Context()); err != nil {
		logger.Warn("read host facts failed", zap.Error(err))
	} else {
		logger.Info("host facts", facts.Fields()...)
	}

	// 3，指标注册
	registry := metrics.NewRegistry(cfg.Metrics.Process)
	pm := metrics.NewPluginMetrics(metrics.NewMetricFactory(metrics.NewPromRegistry(registry)))

	// 4，响应内容
	rep, err := report.New(variant, report.NewDescriptor(cfg.Plugin), report.NewMetricSpec(cfg.Report))
	if err != nil {
		return err
	}
	handler := responder.New(rep, responder.Options{Logger: log.Named("responder"), Metrics: pm})

	// 5，阻塞直到信号或监听失败
	ctx, stop := signal.InstallTerminationHandlers(cmd.Context(), log)
	defer stop()

	logger.Info("starting plugin",
		zap.String("variant", string(variant)), zap.String("id", cfg.Plugin.ID), zap.String("socket", cfg.SocketPath()))
	if err := serve(ctx, cfg, log, handler, registry, pm); err != nil {
		logger.Error("plugin stopped with error", zap.Error(err))
		return err
	}
	logger.Info("all listeners shutdown successfully")
	return nil
}

// serve 插件 socket 与可选的指标 socket 并行运行，任一失败都会关闭另一个
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, handler http.Handler,
	registry *prometheus.Registry, pm *metrics.PluginMetrics) error {
	g, gctx := errgroup.WithContext(ctx)

	pluginSocket := lifecycle.NewManager(cfg.SocketPath(), lifecycle.Options{
		Name:            "plugin",
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          log,
		Cleanups:        pm.SocketCleanups,
	})
	g.Go(func() error { return pluginSocket.Serve(gctx, handler) })

	if cfg.Metrics.Enable {
		metricsSocket := lifecycle.NewManager(cfg.Metrics.Socket, lifecycle.Options{
			Name:            "metrics",
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			Logger:          log,
			Cleanups:        pm.SocketCleanups,
		})
		promHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			ErrorLog: zap.NewStdLog(log),
		})
		g.Go(func() error { return metricsSocket.Serve(gctx, promHandler) })
	}
	return g.Wait()
}
