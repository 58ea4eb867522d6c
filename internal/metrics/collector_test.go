package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newTestCollector 创建用于测试的 Prometheus 收集器
func newTestCollector(t *testing.T) *prometheusCollector {
	t.Helper()

	config := &Config{
		Type:      "prometheus",
		Enabled:   true,
		Namespace: "test",
	}
	collector, err := NewPrometheusCollector(config)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return collector.(*prometheusCollector)
}

// TestPrometheusCollector_RecordDecision 测试决策指标记录
func TestPrometheusCollector_RecordDecision(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordDecision("api", "FIXED_WINDOW", true)
	collector.RecordDecision("api", "FIXED_WINDOW", true)
	collector.RecordDecision("api", "FIXED_WINDOW", false)

	allowed := testutil.ToFloat64(collector.decisionsTotal.WithLabelValues("api", "FIXED_WINDOW", "allowed"))
	if allowed != 2 {
		t.Errorf("Expected 2 allowed decisions, got %v", allowed)
	}

	blocked := testutil.ToFloat64(collector.decisionsTotal.WithLabelValues("api", "FIXED_WINDOW", "blocked"))
	if blocked != 1 {
		t.Errorf("Expected 1 blocked decision, got %v", blocked)
	}

	// 拒绝计数器只统计被拒绝的请求
	rejections := testutil.ToFloat64(collector.rejectionsTotal.WithLabelValues("api", "FIXED_WINDOW"))
	if rejections != 1 {
		t.Errorf("Expected 1 rejection, got %v", rejections)
	}
}

// TestPrometheusCollector_RecordBackendError 测试后端错误指标记录
func TestPrometheusCollector_RecordBackendError(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordBackendError("api", "backend_error")
	collector.RecordBackendError("api", "backend_error")

	errorCount := testutil.ToFloat64(collector.backendErrorsTotal.WithLabelValues("api", "backend_error"))
	if errorCount != 2 {
		t.Errorf("Expected 2 backend errors, got %v", errorCount)
	}
}

// TestPrometheusCollector_RecordUniqueKeys 测试键基数指标记录
func TestPrometheusCollector_RecordUniqueKeys(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordUniqueKeys(42)

	value := testutil.ToFloat64(collector.uniqueKeys)
	if value != 42 {
		t.Errorf("Expected unique keys gauge to be 42, got %v", value)
	}
}
