package lifecycle_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/scope-plugin/pkg/lifecycle"
	"github.com/scope-plugin/pkg/metrics"
)

// shortDir 保证 socket 路径不超过 sun_path 限制
func shortDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "sp")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func unixClient(path string) *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		},
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
}

// serve 后台启动 Serve，等待进入 SERVING
func serve(t *testing.T, m *lifecycle.Manager, h http.Handler) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Serve(ctx, h) }()

	select {
	case <-m.Ready():
	case err := <-errCh:
		cancel()
		t.Fatalf("Serve returned before ready: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("timed out waiting for socket")
	}
	return cancel, errCh
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func get(t *testing.T, path string) string {
	t.Helper()
	resp, err := unixClient(path).Get("http://unix/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func newCleanups() *prometheus.CounterVec {
	reg := prometheus.NewRegistry()
	return metrics.NewMetricFactory(metrics.NewPromRegistry(reg)).NewSocketCleanupsTotal()
}

func TestEnsureDirectory(t *testing.T) {
	dir := filepath.Join(shortDir(t), "a", "b", "c")
	require.NoError(t, lifecycle.EnsureDirectory(dir))
	require.NoError(t, lifecycle.EnsureDirectory(dir), "must be idempotent")

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(shortDir(t), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, lifecycle.EnsureDirectory(file))
	assert.Error(t, lifecycle.EnsureDirectory(filepath.Join(file, "child")))
}

func TestRemoveStaleSocket(t *testing.T) {
	dir := shortDir(t)
	path := filepath.Join(dir, "p.sock")

	removed, err := lifecycle.RemoveStaleSocket(path)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	removed, err = lifecycle.RemoveStaleSocket(path)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoFileExists(t, path)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	_, err = lifecycle.RemoveStaleSocket(sub)
	assert.Error(t, err)
	assert.DirExists(t, sub)
}

func TestServeReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(shortDir(t), "plugins", "volume-count.sock")
	require.NoError(t, lifecycle.EnsureDirectory(filepath.Dir(path)))

	// 模拟被 kill -9 的旧进程遗留的 socket
	old, err := net.Listen("unix", path)
	require.NoError(t, err)
	old.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, old.Close())
	require.FileExists(t, path)

	cleanups := newCleanups()
	m := lifecycle.NewManager(path, lifecycle.Options{Logger: zaptest.NewLogger(t), Cleanups: cleanups})
	cancel, errCh := serve(t, m, okHandler())

	assert.Equal(t, "ok", get(t, path))
	assert.Equal(t, 1.0, testutil.ToFloat64(cleanups.WithLabelValues(metrics.CleanupStale)))

	cancel()
	require.NoError(t, waitErr(t, errCh))
	assert.NoFileExists(t, path)
	assert.Equal(t, 1.0, testutil.ToFloat64(cleanups.WithLabelValues(metrics.CleanupShutdown)))
}

func TestServeCreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(shortDir(t), "x", "y", "p.sock")
	m := lifecycle.NewManager(path, lifecycle.Options{})
	cancel, errCh := serve(t, m, okHandler())
	defer cancel()

	assert.Equal(t, "ok", get(t, path))
	cancel()
	require.NoError(t, waitErr(t, errCh))
	assert.NoFileExists(t, path)
	assert.DirExists(t, filepath.Dir(path))
}

func TestServeStateTransitions(t *testing.T) {
	path := filepath.Join(shortDir(t), "p.sock")
	m := lifecycle.NewManager(path, lifecycle.Options{Name: "test"})
	assert.Equal(t, lifecycle.StateUnbound, m.State())
	assert.Equal(t, path, m.Path())

	cancel, errCh := serve(t, m, okHandler())
	assert.Equal(t, lifecycle.StateServing, m.State())

	cancel()
	require.NoError(t, waitErr(t, errCh))
	assert.Equal(t, lifecycle.StateTerminated, m.State())
	assert.Equal(t, "TERMINATED", m.State().String())

	// 管理器只能使用一次
	assert.Error(t, m.Serve(context.Background(), okHandler()))
}

func TestServeBindFailureLeavesNoSocket(t *testing.T) {
	dir := filepath.Join(shortDir(t), strings.Repeat("d", 100))
	path := filepath.Join(dir, "p.sock")
	m := lifecycle.NewManager(path, lifecycle.Options{})

	err := m.Serve(context.Background(), okHandler())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen unix")
	assert.Equal(t, lifecycle.StateTerminated, m.State())
	assert.NoFileExists(t, path)
}

func TestServePrepareFailure(t *testing.T) {
	dir := shortDir(t)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	m := lifecycle.NewManager(filepath.Join(blocker, "p.sock"), lifecycle.Options{})
	err := m.Serve(context.Background(), okHandler())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure directory")
}

func TestServeConcurrentRequests(t *testing.T) {
	path := filepath.Join(shortDir(t), "p.sock")
	m := lifecycle.NewManager(path, lifecycle.Options{})
	cancel, errCh := serve(t, m, okHandler())

	client := unixClient(path)
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get("http://unix/")
			if err != nil {
				errs <- err
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	cancel()
	require.NoError(t, waitErr(t, errCh))
	assert.NoFileExists(t, path)
}

func TestShutdownWaitsForInFlightRequest(t *testing.T) {
	path := filepath.Join(shortDir(t), "p.sock")
	started := make(chan struct{})
	release := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
		_, _ = io.WriteString(w, "late")
	})

	m := lifecycle.NewManager(path, lifecycle.Options{ShutdownTimeout: 5 * time.Second})
	cancel, errCh := serve(t, m, slow)

	type result struct {
		body string
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		resp, err := unixClient(path).Get("http://unix/")
		if err != nil {
			resCh <- result{err: err}
			return
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		resCh <- result{body: string(b), err: err}
	}()
	<-started

	cancel()
	close(release)
	res := <-resCh
	require.NoError(t, res.err)
	assert.Equal(t, "late", res.body)
	require.NoError(t, waitErr(t, errCh))
	assert.NoFileExists(t, path)
}
