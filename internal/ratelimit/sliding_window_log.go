package ratelimit

import (
	"context"
	"math"

	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/storage"
)

// slidingWindowLogAlgorithm 基于滑动窗口日志的限流实现
//
// 精确统计[now-windowMs, now]内的事件数（恰好位于now-windowMs的
// 事件仍被计入）。每个活跃key的内存
// 开销为O(maxRequests)，换来无边界效应的精确判定。
type slidingWindowLogAlgorithm struct {
	config  *Config
	backend storage.Backend
}

// NewSlidingWindowLogAlgorithm 创建新的滑动窗口日志限流算法实例
func NewSlidingWindowLogAlgorithm(config *Config, backend storage.Backend) Algorithm {
	return &slidingWindowLogAlgorithm{
		config:  config,
		backend: backend,
	}
}

// Check 对指定key执行一次滑动窗口日志决策
//
// 先修剪过期时间戳再统计，放行时追加当前事件。并发写入者之间
// 允许每对至多一次的误计或漏计，对限流场景可接受。
func (a *slidingWindowLogAlgorithm) Check(ctx context.Context, key string, nowMs int64) (*Decision, error) {
	windowStart := nowMs - a.config.WindowMs

	if err := a.backend.RemoveOldTimestamps(ctx, key, windowStart); err != nil {
		return nil, err
	}

	timestamps, err := a.backend.GetTimestamps(ctx, key, windowStart)
	if err != nil {
		return nil, err
	}
	count := len(timestamps)

	allowed := count < a.config.MaxRequests
	if allowed {
		if err := a.backend.AddTimestamp(ctx, key, nowMs, a.config.ttlMs()); err != nil {
			return nil, err
		}
	}

	decision := &Decision{
		Allowed:      allowed,
		Limit:        a.config.MaxRequests,
		Remaining:    max(0, a.config.MaxRequests-count-boolToInt(allowed)),
		CurrentCount: count + boolToInt(allowed),
	}

	if allowed {
		decision.ResetAt = int64(math.Ceil(float64(nowMs+a.config.WindowMs) / 1000.0))
	} else {
		// 最老的事件滑出窗口后配额才开始恢复
		oldest := timestamps[0]
		decision.ResetAt = int64(math.Ceil(float64(oldest+a.config.WindowMs) / 1000.0))
		decision.RetryAfter = max(1, int(math.Ceil(float64(oldest+a.config.WindowMs-nowMs)/1000.0)))
	}
	return decision, nil
}

// Reset 清除指定key的限流状态
func (a *slidingWindowLogAlgorithm) Reset(ctx context.Context, key string) error {
	return a.backend.Delete(ctx, key)
}

// Type 获取算法标识符
func (a *slidingWindowLogAlgorithm) Type() string {
	return constants.AlgorithmSlidingWindowLog
}

// boolToInt 布尔值转整数
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
