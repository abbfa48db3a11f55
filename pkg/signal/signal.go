package signal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// ErrTerminated ctx 因退出信号取消时的 cause
var ErrTerminated = errors.New("terminated by signal")

// InstallTerminationHandlers 监听退出信号（SIGINT/SIGTERM），收到后取消返回的 ctx。
// 返回的 stop 恢复默认信号行为，调用方需 defer。
func InstallTerminationHandlers(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancelCause(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel(fmt.Errorf("%w: %s", ErrTerminated, sig))
		case <-ctx.Done():
		case <-done:
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
			cancel(context.Canceled)
		})
	}
	return ctx, stop
}
