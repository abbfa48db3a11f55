package report

import (
	"fmt"
	"time"
)

// Variant 插件变体，对应 CLI 子命令名
type Variant string

const (
	// VariantInfo 只返回插件描述
	VariantInfo Variant = "info"
	// VariantMetadata 额外返回一个静态容器指标
	VariantMetadata Variant = "metadata"
)

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantInfo, VariantMetadata:
		return v, nil
	default:
		return "", fmt.Errorf("unknown plugin variant %q (valid: %s/%s)", s, VariantInfo, VariantMetadata)
	}
}

// Reporter 生成某一时刻的响应文档，实现必须是纯函数、可并发调用
type Reporter interface {
	Report(now time.Time) Document
}

type infoReporter struct {
	desc Descriptor
}

// NewInfoReporter 变体 A
func NewInfoReporter(desc Descriptor) Reporter {
	return &infoReporter{desc: desc}
}

func (r *infoReporter) Report(time.Time) Document {
	return Document{Plugins: []Descriptor{r.desc}}
}

type metadataReporter struct {
	desc   Descriptor
	metric MetricSpec
}

// NewMetadataReporter 变体 B
func NewMetadataReporter(desc Descriptor, metric MetricSpec) Reporter {
	return &metadataReporter{desc: desc, metric: metric}
}

func (r *metadataReporter) Report(now time.Time) Document {
	m := r.metric
	return Document{
		Plugins: []Descriptor{r.desc},
		Container: &Topology{
			Nodes: map[string]Node{
				m.NodeID: {
					Latest: map[string]LatestEntry{
						m.Name: {Timestamp: Timestamp(now), Value: m.Value},
					},
				},
			},
			MetadataTemplates: map[string]MetadataTemplate{
				m.Name: {ID: m.Name, Label: m.Label, From: FromLatest, Priority: m.Priority},
			},
		},
	}
}

// New 按变体构造 Reporter
func New(v Variant, desc Descriptor, metric MetricSpec) (Reporter, error) {
	switch v {
	case VariantInfo:
		return NewInfoReporter(desc), nil
	case VariantMetadata:
		return NewMetadataReporter(desc, metric), nil
	default:
		return nil, fmt.Errorf("unknown plugin variant %q", v)
	}
}
