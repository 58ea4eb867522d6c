package ratelimit

import (
	"context"
	"math"
	"strconv"

	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/storage"
)

// fixedWindowAlgorithm 基于固定窗口计数的限流实现
//
// 时间被划分为对齐到纪元零点、互不重叠的windowMs窗口，每个窗口
// 维护独立计数器。已知边界效应：客户端可以在短于一个窗口的时间内
// 跨越边界发出最多2×maxRequests个请求，本算法不修正该效应。
type fixedWindowAlgorithm struct {
	config  *Config
	backend storage.Backend
}

// NewFixedWindowAlgorithm 创建新的固定窗口限流算法实例
func NewFixedWindowAlgorithm(config *Config, backend storage.Backend) Algorithm {
	return &fixedWindowAlgorithm{
		config:  config,
		backend: backend,
	}
}

// windowKey 构造窗口专属的计数器键
func (a *fixedWindowAlgorithm) windowKey(key string, windowStart int64) string {
	return key + ":" + strconv.FormatInt(windowStart, 10)
}

// Check 对指定key执行一次固定窗口决策
func (a *fixedWindowAlgorithm) Check(ctx context.Context, key string, nowMs int64) (*Decision, error) {
	windowStart := nowMs - nowMs%a.config.WindowMs

	count, err := a.backend.Increment(ctx, a.windowKey(key, windowStart), a.config.WindowMs)
	if err != nil {
		return nil, err
	}

	allowed := count <= int64(a.config.MaxRequests)
	resetAtMs := windowStart + a.config.WindowMs

	decision := &Decision{
		Allowed:      allowed,
		Limit:        a.config.MaxRequests,
		Remaining:    max(0, a.config.MaxRequests-int(count)),
		CurrentCount: int(count),
		ResetAt:      int64(math.Ceil(float64(resetAtMs) / 1000.0)),
	}
	if !allowed {
		decision.RetryAfter = max(1, int(math.Ceil(float64(resetAtMs-nowMs)/1000.0)))
	}
	return decision, nil
}

// Reset 清除指定key的限流状态
func (a *fixedWindowAlgorithm) Reset(ctx context.Context, key string) error {
	return a.backend.Delete(ctx, key)
}

// Type 获取算法标识符
func (a *fixedWindowAlgorithm) Type() string {
	return constants.AlgorithmFixedWindow
}
