package ratelimit

import (
	"context"
	"math"

	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/storage"
)

// leakingBucketAlgorithm 基于漏桶算法的限流实现
//
// 到达的请求进入有界FIFO队列，服务端以processingRate的恒定速率
// 漏出。队列已满的请求被拒绝。无突发额度，下游负载平稳。
type leakingBucketAlgorithm struct {
	config  *Config
	backend storage.Backend
}

// NewLeakingBucketAlgorithm 创建新的漏桶限流算法实例
func NewLeakingBucketAlgorithm(config *Config, backend storage.Backend) Algorithm {
	return &leakingBucketAlgorithm{
		config:  config,
		backend: backend,
	}
}

// Check 对指定key执行一次漏桶决策
func (a *leakingBucketAlgorithm) Check(ctx context.Context, key string, nowMs int64) (*Decision, error) {
	state, err := a.backend.GetQueue(ctx, key)
	if err != nil {
		return nil, err
	}

	if state == nil {
		state = &storage.QueueState{
			Arrivals:   []int64{},
			LastLeakMs: nowMs,
		}
	}

	// 按流逝时间从队头漏出。未漏出任何请求时时间基准不动，流逝的时间
	// 累积到下次调用；漏出后时间基准移到now，不足一个请求的余量被舍弃
	leaked := int(float64(nowMs-state.LastLeakMs) / 1000.0 * a.config.ProcessingRate)
	if leaked > 0 {
		if leaked >= len(state.Arrivals) {
			state.Arrivals = state.Arrivals[:0]
		} else {
			state.Arrivals = state.Arrivals[leaked:]
		}
		state.LastLeakMs = nowMs
	}

	allowed := len(state.Arrivals) < a.config.QueueSize
	if allowed {
		state.Arrivals = append(state.Arrivals, nowMs)
	}

	if err := a.backend.SetQueue(ctx, key, state, a.config.ttlMs()); err != nil {
		return nil, err
	}

	queueLen := len(state.Arrivals)
	drainMs := float64(queueLen) / a.config.ProcessingRate * 1000.0

	decision := &Decision{
		Allowed:      allowed,
		Limit:        a.config.QueueSize,
		Remaining:    max(0, a.config.QueueSize-queueLen),
		CurrentCount: queueLen,
		ResetAt:      int64(math.Ceil((float64(nowMs) + drainMs) / 1000.0)),
	}
	if !allowed {
		decision.RetryAfter = max(1, int(math.Ceil(1.0/a.config.ProcessingRate)))
	}
	return decision, nil
}

// Reset 清除指定key的限流状态
func (a *leakingBucketAlgorithm) Reset(ctx context.Context, key string) error {
	return a.backend.Delete(ctx, key)
}

// Type 获取算法标识符
func (a *leakingBucketAlgorithm) Type() string {
	return constants.AlgorithmLeakingBucket
}
