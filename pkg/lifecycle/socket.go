// Package lifecycle 管理插件 unix socket 的完整生命周期：
// 准备目录、清理遗留 socket、监听、服务，以及任意退出路径上的 socket 删除。
package lifecycle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// EnsureDirectory 递归创建目录；已存在时静默成功，路径被普通文件占用时报错
func EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("ensure directory %s: %w", path, err)
	}
	return nil
}

// RemoveStaleSocket 删除上次进程遗留的 socket 文件，不存在时不做任何事。
// removed 表示确实删除了文件。
func RemoveStaleSocket(path string) (removed bool, err error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat socket %s: %w", path, err)
	}
	// 目录不是我们创建的，拒绝删除
	if info.IsDir() {
		return false, fmt.Errorf("remove stale socket %s: path is a directory", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return true, nil
}
