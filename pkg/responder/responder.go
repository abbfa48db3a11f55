// Package responder 插件 socket 上唯一的 HTTP 端点：
// 任意路径的 GET 都返回同一份 JSON 文档，其他方法一律 501。
package responder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/scope-plugin/pkg/metrics"
	"github.com/scope-plugin/pkg/report"
)

const contentTypeJSON = "application/json"

// Options Responder 可选依赖
type Options struct {
	Logger  *zap.Logger            // nil 时不输出日志
	Metrics *metrics.PluginMetrics // nil 时不统计
	Clock   func() time.Time       // 默认 time.Now
}

// Responder 无共享可变状态，可被任意多个连接并发调用
type Responder struct {
	reporter report.Reporter
	logger   *zap.Logger
	clock    func() time.Time
	router   *chi.Mux
}

// New 创建 Responder 并注册路由
func New(reporter report.Reporter, opts Options) *Responder {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	s := &Responder{
		reporter: reporter,
		logger:   opts.Logger,
		clock:    opts.Clock,
	}

	r := chi.NewRouter()
	r.Use(WithRequestInfo)
	r.Use(accessLog(opts.Logger, opts.Metrics))
	r.Use(middleware.Recoverer)

	// 宿主不做路径路由，所有路径同一份响应
	r.Get("/*", s.serveReport)
	r.MethodNotAllowed(s.notImplemented)
	r.NotFound(s.notImplemented)

	s.router = r
	return s
}

func (s *Responder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Responder) serveReport(w http.ResponseWriter, r *http.Request) {
	body, err := report.Encode(s.reporter.Report(s.clock()))
	if err != nil {
		s.logger.Error("encode report failed", zap.Error(err))
		s.writeJSON(w, r, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	s.writeJSON(w, r, http.StatusOK, body)
}

// notImplemented 对齐宿主期望：只支持 GET
func (s *Responder) notImplemented(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusNotImplemented, errorBody(fmt.Sprintf("unsupported method (%s)", r.Method)))
}

// writeJSON 写完整响应；写失败说明对端已断开，只记 debug
func (s *Responder) writeJSON(w http.ResponseWriter, r *http.Request, status int, body []byte) {
	h := w.Header()
	h.Set("Content-Type", contentTypeJSON)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		info, _ := FromContext(r.Context())
		s.logger.Debug("write response failed", zap.String("request_id", info.ID), zap.Error(err))
	}
}

func errorBody(msg string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(map[string]string{"error": msg})
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
