package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector 代表指标收集器接口，定义统一的指标收集行为
type MetricsCollector interface {
	// RecordDecision 记录一次限流决策
	// limiterName: 限流器名称
	// algorithm: 算法标识符
	// allowed: 决策结果
	RecordDecision(limiterName, algorithm string, allowed bool)

	// RecordBackendError 记录一次存储后端错误
	// limiterName: 限流器名称
	// errorType: 错误类型
	RecordBackendError(limiterName, errorType string)

	// RecordUniqueKeys 记录当前观测到的不同客户端键数量
	// count: 键数量估计值
	RecordUniqueKeys(count int64)

	// 工具方法

	// GetRegistry 获取 Prometheus 注册器，用于挂载 /metrics 端点
	GetRegistry() *prometheus.Registry

	// Name 获取收集器名称
	Name() string

	// Close 关闭收集器并清理资源
	Close() error
}

// MetricsCollectorFactory 代表指标收集器工厂接口
type MetricsCollectorFactory interface {
	// Create 根据配置创建指标收集器
	// config: 指标收集器配置
	Create(config *Config) (MetricsCollector, error)
}

// Config 代表指标收集器配置
type Config struct {
	// Type 指标收集器类型（prometheus, noop）
	Type string `yaml:"type" json:"type"`

	// Enabled 是否启用指标收集
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Namespace 指标命名空间前缀
	Namespace string `yaml:"namespace" json:"namespace"`

	// Subsystem 指标子系统名称
	Subsystem string `yaml:"subsystem" json:"subsystem"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Type:      "noop",
		Enabled:   true,
		Namespace: "flowfence",
		Subsystem: "",
	}
}
