package util

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"
)

// HostFacts 启动时记录的主机信息
type HostFacts struct {
	Hostname        string
	Platform        string
	PlatformVersion string
	KernelVersion   string
	KernelArch      string
	Virtualization  string
}

// CollectHostFacts 读取主机静态信息
func CollectHostFacts(ctx context.Context) (HostFacts, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostFacts{}, fmt.Errorf("read host info: %w", err)
	}
	return HostFacts{
		Hostname:        info.Hostname,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		KernelArch:      info.KernelArch,
		Virtualization:  info.VirtualizationSystem,
	}, nil
}

// Fields 转为 zap 字段
func (h HostFacts) Fields() []zap.Field {
	return []zap.Field{
		zap.String("hostname", h.Hostname),
		zap.String("platform", h.Platform),
		zap.String("platform_version", h.PlatformVersion),
		zap.String("kernel", h.KernelVersion),
		zap.String("arch", h.KernelArch),
		zap.String("virtualization", h.Virtualization),
	}
}
