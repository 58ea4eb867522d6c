package ratelimit

import (
	"context"
	"math"

	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/storage"
)

// tokenBucketAlgorithm 基于令牌桶算法的限流实现
//
// 容量为bucketSize的桶每refillIntervalMs补充refillRate个令牌，
// 上限封顶。每个请求消耗一个令牌。空闲后允许最多bucketSize的
// 突发流量，长期速率收敛到refillRate/refillIntervalMs。
type tokenBucketAlgorithm struct {
	config  *Config
	backend storage.Backend
}

// NewTokenBucketAlgorithm 创建新的令牌桶限流算法实例
func NewTokenBucketAlgorithm(config *Config, backend storage.Backend) Algorithm {
	return &tokenBucketAlgorithm{
		config:  config,
		backend: backend,
	}
}

// Check 对指定key执行一次令牌桶决策
func (a *tokenBucketAlgorithm) Check(ctx context.Context, key string, nowMs int64) (*Decision, error) {
	state, err := a.backend.GetBucketState(ctx, key)
	if err != nil {
		return nil, err
	}

	// 桶初始为满，首个请求必然放行
	if state == nil {
		state = &storage.BucketState{
			Tokens:       float64(a.config.BucketSize),
			LastRefillMs: nowMs,
		}
	}

	// 按完整补充周期补充令牌。未满一个周期时时间基准不动，流逝的时间
	// 累积到下次调用；补充后时间基准移到now，不足一个周期的余量被舍弃
	intervals := (nowMs - state.LastRefillMs) / a.config.RefillIntervalMs
	if added := intervals * int64(a.config.RefillRate); added > 0 {
		state.Tokens = math.Min(float64(a.config.BucketSize), state.Tokens+float64(added))
		state.LastRefillMs = nowMs
	}

	allowed := state.Tokens > 0
	if allowed {
		state.Tokens--
	}

	if err := a.backend.SetBucketState(ctx, key, state, a.config.ttlMs()); err != nil {
		return nil, err
	}

	// 恢复全部容量所需的时间
	refillMs := (float64(a.config.BucketSize) - state.Tokens) / float64(a.config.RefillRate) * float64(a.config.RefillIntervalMs)
	resetAt := int64(math.Ceil((float64(nowMs) + refillMs) / 1000.0))

	decision := &Decision{
		Allowed:      allowed,
		Limit:        a.config.BucketSize,
		Remaining:    max(0, int(math.Floor(state.Tokens))),
		CurrentCount: a.config.BucketSize - int(math.Floor(state.Tokens)),
		ResetAt:      resetAt,
	}
	if !allowed {
		decision.RetryAfter = max(1, int(math.Ceil(float64(a.config.RefillIntervalMs)/1000.0)))
	}
	return decision, nil
}

// Reset 清除指定key的限流状态
func (a *tokenBucketAlgorithm) Reset(ctx context.Context, key string) error {
	return a.backend.Delete(ctx, key)
}

// Type 获取算法标识符
func (a *tokenBucketAlgorithm) Type() string {
	return constants.AlgorithmTokenBucket
}
