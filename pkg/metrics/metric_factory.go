package metrics

// Namespace 所有自监控指标的前缀
const Namespace = "scope_plugin"

// MetricFactory 指标工厂，用于统一创建并注册指标
type MetricFactory struct {
	reg Registers
}

// NewMetricFactory 创建指标工厂
func NewMetricFactory(reg Registers) *MetricFactory {
	return &MetricFactory{reg: reg}
}
