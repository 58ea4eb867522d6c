package ratelimit

import (
	"context"
	"math"
	"strconv"

	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/storage"
)

// slidingWindowCounterAlgorithm 基于加权双计数器的滑动窗口限流实现
//
// 只用当前和上一个固定窗口的两个计数器近似滑动日志的统计结果，
// 每个key的内存开销为O(1)。假设上一窗口的请求均匀分布。
type slidingWindowCounterAlgorithm struct {
	config  *Config
	backend storage.Backend
}

// NewSlidingWindowCounterAlgorithm 创建新的滑动窗口计数限流算法实例
func NewSlidingWindowCounterAlgorithm(config *Config, backend storage.Backend) Algorithm {
	return &slidingWindowCounterAlgorithm{
		config:  config,
		backend: backend,
	}
}

// windowKey 构造窗口专属的计数器键
func (a *slidingWindowCounterAlgorithm) windowKey(key string, windowStart int64) string {
	return key + ":" + strconv.FormatInt(windowStart, 10)
}

// Check 对指定key执行一次滑动窗口计数决策
func (a *slidingWindowCounterAlgorithm) Check(ctx context.Context, key string, nowMs int64) (*Decision, error) {
	windowStart := nowMs - nowMs%a.config.WindowMs
	previousStart := windowStart - a.config.WindowMs

	current, _, err := a.backend.Get(ctx, a.windowKey(key, windowStart))
	if err != nil {
		return nil, err
	}
	previous, _, err := a.backend.Get(ctx, a.windowKey(key, previousStart))
	if err != nil {
		return nil, err
	}

	// 上一窗口与滑动窗口的重叠比例
	positionFraction := float64(nowMs%a.config.WindowMs) / float64(a.config.WindowMs)
	overlap := 1.0 - positionFraction

	estimated := int(math.Floor(float64(current) + float64(previous)*overlap))

	allowed := estimated < a.config.MaxRequests
	if allowed {
		// 计数器TTL取2倍窗口，保证上一窗口的值在当前窗口内可读
		if _, err := a.backend.Increment(ctx, a.windowKey(key, windowStart), a.config.ttlMs()); err != nil {
			return nil, err
		}
	}

	decision := &Decision{
		Allowed:      allowed,
		Limit:        a.config.MaxRequests,
		Remaining:    max(0, a.config.MaxRequests-estimated-boolToInt(allowed)),
		CurrentCount: estimated,
		ResetAt:      int64(math.Ceil(float64(windowStart+a.config.WindowMs) / 1000.0)),
	}
	if !allowed {
		excess := estimated - a.config.MaxRequests + 1
		waitMs := float64(excess) * float64(a.config.WindowMs) / float64(a.config.MaxRequests)
		decision.RetryAfter = max(1, int(math.Ceil(waitMs/1000.0)))
	}
	return decision, nil
}

// Reset 清除指定key的限流状态
func (a *slidingWindowCounterAlgorithm) Reset(ctx context.Context, key string) error {
	return a.backend.Delete(ctx, key)
}

// Type 获取算法标识符
func (a *slidingWindowCounterAlgorithm) Type() string {
	return constants.AlgorithmSlidingWindowCounter
}
