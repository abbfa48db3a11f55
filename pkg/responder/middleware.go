package responder

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/scope-plugin/pkg/metrics"
)

// statusWriter 包装 ResponseWriter，捕获状态码和写出字节数
type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

// WriteHeader 捕获状态码
func (w *statusWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.status = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// accessLog 统一记录访问日志和请求指标，m 为 nil 时只记日志
func accessLog(logger *zap.Logger, m *metrics.PluginMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			elapsed := time.Since(start)
			info, _ := FromContext(r.Context())
			logger.Info(
				"plugin request",
				zap.String("request_id", info.ID),
				zap.String("client", info.ClientAddr),
				zap.String("method", r.Method),
				zap.String("url", r.URL.String()),
				zap.Int("status", sw.status),
				zap.Int("bytes", sw.bytes),
				zap.Duration("duration", elapsed),
			)

			if m != nil {
				m.Requests.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
				m.Duration.WithLabelValues(r.Method).Observe(elapsed.Seconds())
				m.ResponseSize.Observe(float64(sw.bytes))
			}
		})
	}
}
