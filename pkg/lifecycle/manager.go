package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/scope-plugin/pkg/metrics"
)

// State socket 生命周期状态：UNBOUND -> BOUND -> SERVING -> TERMINATED
type State int32

const (
	StateUnbound State = iota
	StateBound
	StateServing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "UNBOUND"
	case StateBound:
		return "BOUND"
	case StateServing:
		return "SERVING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// defaultShutdownTimeout 优雅关闭超时时间，避免关闭流程无限阻塞
const defaultShutdownTimeout = 5 * time.Second

// Options Manager 可选参数
type Options struct {
	Name            string                 // 日志中的监听名称（plugin/metrics）
	ShutdownTimeout time.Duration          // 优雅关闭超时
	Logger          *zap.Logger            // nil 时不输出日志
	Cleanups        *prometheus.CounterVec // socket 删除计数（reason），可为空
}

// Manager 单个 unix socket 的生命周期管理器，只能 Serve 一次
type Manager struct {
	path   string
	opts   Options
	logger *zap.Logger

	state     atomic.Int32
	ready     chan struct{}
	readyOnce sync.Once
}

// NewManager 创建管理器，此时不触碰文件系统
func NewManager(path string, opts Options) *Manager {
	if opts.Name == "" {
		opts.Name = "plugin"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		path:   path,
		opts:   opts,
		logger: opts.Logger.With(zap.String("listener", opts.Name), zap.String("socket", path)),
		ready:  make(chan struct{}),
	}
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) State() State { return State(m.state.Load()) }

// Ready 进入 SERVING 后关闭
func (m *Manager) Ready() <-chan struct{} { return m.ready }

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
	m.logger.Debug("socket state changed", zap.Stringer("state", s))
	if s == StateServing {
		m.readyOnce.Do(func() { close(m.ready) })
	}
}

// Prepare 确保父目录存在并删除遗留 socket
func (m *Manager) Prepare() error {
	if err := EnsureDirectory(filepath.Dir(m.path)); err != nil {
		return err
	}
	removed, err := RemoveStaleSocket(m.path)
	if err != nil {
		return err
	}
	if removed {
		m.logger.Warn("removed stale socket left by a previous instance")
		m.countCleanup(metrics.CleanupStale)
	}
	return nil
}

// Serve 绑定 socket 并阻塞服务，直到 ctx 取消（返回 nil）或监听失败（返回错误）。
// 任何退出路径（包括 panic）都会删除 socket 文件。
func (m *Manager) Serve(ctx context.Context, handler http.Handler) error {
	if m.State() != StateUnbound {
		return fmt.Errorf("socket %s: serve called in state %s", m.path, m.State())
	}
	defer m.terminate()

	if err := m.Prepare(); err != nil {
		return err
	}

	ln, err := net.Listen("unix", m.path)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", m.path, err)
	}
	// 文件删除由 terminate 统一负责
	if ul, ok := ln.(*net.UnixListener); ok {
		ul.SetUnlinkOnClose(false)
	}
	m.setState(StateBound)

	srv := &http.Server{
		Handler:  handler,
		ErrorLog: zap.NewStdLog(m.logger),
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	m.setState(StateServing)
	m.logger.Info("plugin socket listening")

	select {
	case <-ctx.Done():
		m.logger.Info("shutting down socket listener", zap.NamedError("reason", context.Cause(ctx)))
		m.shutdown(srv)
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		m.logger.Error("socket listener failed", zap.Error(err))
		return fmt.Errorf("serve unix %s: %w", m.path, err)
	}
}

func (m *Manager) shutdown(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.opts.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		m.logger.Warn("graceful shutdown incomplete, closing remaining connections", zap.Error(err))
		_ = srv.Close()
	}
}

func (m *Manager) terminate() {
	removed, err := RemoveStaleSocket(m.path)
	switch {
	case err != nil:
		m.logger.Error("failed to remove socket on exit", zap.Error(err))
	case removed:
		m.countCleanup(metrics.CleanupShutdown)
		m.logger.Info("socket removed")
	}
	m.setState(StateTerminated)
}

func (m *Manager) countCleanup(reason string) {
	if m.opts.Cleanups != nil {
		m.opts.Cleanups.WithLabelValues(reason).Inc()
	}
}
