// Package goid 读取当前 goroutine ID，仅用于日志关联
package goid

import (
	"bytes"
	"runtime"
)

var prefix = []byte("goroutine ")

// GetGID 获取当前 goroutine 的 ID，解析失败返回 0
func GetGID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// 栈信息类似: "goroutine 123 [running]:\n"
	b := bytes.TrimPrefix(buf[:n], prefix)
	var id uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
