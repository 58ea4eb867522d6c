package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// noopCollector 空操作指标收集器，用于禁用指标收集时的占位实现
type noopCollector struct {
	name string
}

// NewNoopCollector 创建新的空操作指标收集器实例
func NewNoopCollector() MetricsCollector {
	return &noopCollector{
		name: "noop",
	}
}

func (c *noopCollector) RecordDecision(limiterName, algorithm string, allowed bool) {
	// 空实现
}

func (c *noopCollector) RecordBackendError(limiterName, errorType string) {
	// 空实现
}

func (c *noopCollector) RecordUniqueKeys(count int64) {
	// 空实现
}

func (c *noopCollector) GetRegistry() *prometheus.Registry {
	// 返回空的注册器
	return prometheus.NewRegistry()
}

func (c *noopCollector) Name() string {
	return c.name
}

func (c *noopCollector) Close() error {
	// 空实现，无需清理资源
	return nil
}
