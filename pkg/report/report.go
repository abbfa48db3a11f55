// Package report 构造插件返回给宿主的 JSON 文档：
// 插件描述（Plugins）以及 metadata 变体附带的容器拓扑（Container）。
// 所有内容在启动时确定，只有时间戳随请求变化。
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scope-plugin/pkg/config"
)

const (
	// InterfaceReporter 表示插件会提供 report
	InterfaceReporter = "reporter"
	// APIVersion 宿主插件协议版本
	APIVersion = "1"
	// TimestampLayout RFC3339，UTC，固定微秒精度
	TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"
	// FromLatest 模板从 node 的 latest 中取值
	FromLatest = "latest"
)

// Descriptor Plugin Descriptor，构造后不再修改
type Descriptor struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Interfaces  []string `json:"interfaces"`
	APIVersion  string   `json:"api_version"`
}

// Document 响应体
type Document struct {
	Plugins   []Descriptor `json:"Plugins"`
	Container *Topology    `json:"Container,omitempty"`
}

// Topology 容器拓扑：节点最新值 + UI 渲染模板
type Topology struct {
	Nodes             map[string]Node             `json:"nodes"`
	MetadataTemplates map[string]MetadataTemplate `json:"metadata_templates"`
}

type Node struct {
	Latest map[string]LatestEntry `json:"latest"`
}

type LatestEntry struct {
	Timestamp string `json:"timestamp"`
	Value     string `json:"value"`
}

// MetadataTemplate 告诉 UI 如何展示字段；priority 越小越靠前，大于10隐藏
type MetadataTemplate struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	From     string  `json:"from"`
	Priority float64 `json:"priority"`
}

// MetricSpec 单个静态指标
type MetricSpec struct {
	NodeID   string
	Name     string
	Label    string
	Value    string
	Priority float64
}

// NewDescriptor 由配置构造插件描述
func NewDescriptor(cfg config.PluginConfig) Descriptor {
	return Descriptor{
		ID:          cfg.ID,
		Label:       cfg.Label,
		Description: cfg.Description,
		Interfaces:  []string{InterfaceReporter},
		APIVersion:  APIVersion,
	}
}

func NewMetricSpec(cfg config.ReportConfig) MetricSpec {
	return MetricSpec{
		NodeID:   cfg.NodeID,
		Name:     cfg.MetricName,
		Label:    cfg.MetricLabel,
		Value:    cfg.Value,
		Priority: cfg.Priority,
	}
}

// Timestamp 按 TimestampLayout 格式化为 UTC
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Encode 序列化文档；不转义 HTML 字符，保持 "<container>" 原样
func Encode(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
