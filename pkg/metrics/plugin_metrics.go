package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// socket 清理原因
const (
	CleanupStale    = "stale"
	CleanupShutdown = "shutdown"
)

// PluginMetrics 插件自身的请求与 socket 生命周期指标
type PluginMetrics struct {
	Requests       *prometheus.CounterVec   // 请求数（method, code）
	Duration       *prometheus.HistogramVec // 处理耗时（method）
	ResponseSize   prometheus.Histogram     // 响应体字节数
	SocketCleanups *prometheus.CounterVec   // socket 文件删除次数（reason）
}

// NewPluginMetrics 一次性创建全部插件指标
func NewPluginMetrics(f *MetricFactory) *PluginMetrics {
	return &PluginMetrics{
		Requests:       f.NewRequestsTotal(),
		Duration:       f.NewRequestDurationSeconds(),
		ResponseSize:   f.NewResponseSizeBytes(),
		SocketCleanups: f.NewSocketCleanupsTotal(),
	}
}

// NewRequestsTotal Counter，按方法和状态码统计请求
func (f *MetricFactory) NewRequestsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "requests_total",
			Help:      "Total HTTP requests served on the plugin socket",
		},
		[]string{"method", "code"},
	)
}

// NewRequestDurationSeconds Histogram，静态响应通常在亚毫秒级
func (f *MetricFactory) NewRequestDurationSeconds() *prometheus.HistogramVec {
	return promauto.With(f.reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent answering a plugin request",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8), // 0.1ms ~ 1.6s
		},
		[]string{"method"},
	)
}

func (f *MetricFactory) NewResponseSizeBytes() prometheus.Histogram {
	return promauto.With(f.reg).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "response_size_bytes",
			Help:      "Size of plugin response bodies",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 8),
		},
	)
}

// NewSocketCleanupsTotal Counter，reason=stale 表示上次进程遗留的 socket
func (f *MetricFactory) NewSocketCleanupsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "socket_cleanups_total",
			Help:      "Socket files removed by the plugin",
		},
		[]string{"reason"},
	)
}
