package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// 决策结果标签值定义
const (
	resultAllowed = "allowed"
	resultBlocked = "blocked"
)

// prometheusCollector 基于 Prometheus 的指标收集器实现
type prometheusCollector struct {
	name     string
	registry *prometheus.Registry
	config   *Config

	// 限流决策指标
	decisionsTotal  *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec

	// 存储后端指标
	backendErrorsTotal *prometheus.CounterVec

	// 客户端键指标
	uniqueKeys prometheus.Gauge
}

// NewPrometheusCollector 创建新的 Prometheus 指标收集器实例
func NewPrometheusCollector(config *Config) (MetricsCollector, error) {
	return NewPrometheusCollectorWithRegistry(config, prometheus.NewRegistry())
}

// NewPrometheusCollectorWithRegistry 创建使用指定注册器的 Prometheus 指标收集器实例
func NewPrometheusCollectorWithRegistry(config *Config, registry *prometheus.Registry) (MetricsCollector, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}

	collector := &prometheusCollector{
		name:     "prometheus",
		registry: registry,
		config:   config,
	}

	if err := collector.initMetrics(); err != nil {
		return nil, err
	}

	return collector, nil
}

// initMetrics 初始化并注册全部指标
func (c *prometheusCollector) initMetrics() error {
	c.decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      "ratelimit_decisions_total",
			Help:      "Total number of rate limit decisions",
		},
		[]string{"limiter", "algorithm", "result"},
	)

	c.rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      "ratelimit_rejections_total",
			Help:      "Total number of rejected requests",
		},
		[]string{"limiter", "algorithm"},
	)

	c.backendErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      "storage_backend_errors_total",
			Help:      "Total number of storage backend errors",
		},
		[]string{"limiter", "error_type"},
	)

	c.uniqueKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      "ratelimit_unique_keys",
			Help:      "Estimated number of distinct client keys observed",
		},
	)

	// 注册全部指标
	collectors := []prometheus.Collector{
		c.decisionsTotal,
		c.rejectionsTotal,
		c.backendErrorsTotal,
		c.uniqueKeys,
	}
	for _, collector := range collectors {
		if err := c.registry.Register(collector); err != nil {
			return fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return nil
}

// RecordDecision 记录一次限流决策
func (c *prometheusCollector) RecordDecision(limiterName, algorithm string, allowed bool) {
	result := resultAllowed
	if !allowed {
		result = resultBlocked
		c.rejectionsTotal.WithLabelValues(limiterName, algorithm).Inc()
	}
	c.decisionsTotal.WithLabelValues(limiterName, algorithm, result).Inc()
}

// RecordBackendError 记录一次存储后端错误
func (c *prometheusCollector) RecordBackendError(limiterName, errorType string) {
	c.backendErrorsTotal.WithLabelValues(limiterName, errorType).Inc()
}

// RecordUniqueKeys 记录当前观测到的不同客户端键数量
func (c *prometheusCollector) RecordUniqueKeys(count int64) {
	c.uniqueKeys.Set(float64(count))
}

// GetRegistry 获取 Prometheus 注册器
func (c *prometheusCollector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Name 获取收集器名称
func (c *prometheusCollector) Name() string {
	return c.name
}

// Close 关闭收集器并清理资源
func (c *prometheusCollector) Close() error {
	return nil
}
