// Package stats 提供进程级限流统计聚合
//
// 计数器按请求以原子操作更新，快照随时可读。多进程部署下统计
// 为每进程独立，跨进程聚合由运维侧负责。
package stats

import (
	"context"
	"sync/atomic"

	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/storage"
)

// algorithmCounters 代表单个算法的请求计数器组
type algorithmCounters struct {
	total   atomic.Int64
	allowed atomic.Int64
	blocked atomic.Int64
}

// AlgorithmSnapshot 代表单个算法的统计快照
type AlgorithmSnapshot struct {
	Total   int64 `json:"total"`
	Allowed int64 `json:"allowed"`
	Blocked int64 `json:"blocked"`
}

// Snapshot 代表进程级统计快照
type Snapshot struct {
	TotalRequests       int64                        `json:"totalRequests"`
	AllowedRequests     int64                        `json:"allowedRequests"`
	BlockedRequests     int64                        `json:"blockedRequests"`
	UniqueKeys          int64                        `json:"uniqueKeys"`
	RequestsByAlgorithm map[string]AlgorithmSnapshot `json:"requestsByAlgorithm"`
}

// Aggregator 代表进程级统计聚合器
type Aggregator struct {
	total   atomic.Int64
	allowed atomic.Int64
	blocked atomic.Int64

	byAlgorithm map[string]*algorithmCounters
	sketch      *keySketch
	backend     storage.Backend
}

// NewAggregator 创建新的统计聚合器实例
// backend: 存储后端，Reset时一并清空；可以为nil
func NewAggregator(backend storage.Backend) *Aggregator {
	byAlgorithm := make(map[string]*algorithmCounters)
	for _, algorithm := range []string{
		constants.AlgorithmTokenBucket,
		constants.AlgorithmLeakingBucket,
		constants.AlgorithmFixedWindow,
		constants.AlgorithmSlidingWindowLog,
		constants.AlgorithmSlidingWindowCounter,
	} {
		byAlgorithm[algorithm] = &algorithmCounters{}
	}

	return &Aggregator{
		byAlgorithm: byAlgorithm,
		sketch:      newKeySketch(),
		backend:     backend,
	}
}

// Record 记录一次限流决策
// algorithm: 算法标识符
// key: 客户端键
// allowed: 决策结果
func (a *Aggregator) Record(algorithm, key string, allowed bool) {
	a.sketch.Observe(key)

	a.total.Add(1)
	if allowed {
		a.allowed.Add(1)
	} else {
		a.blocked.Add(1)
	}

	if counters, ok := a.byAlgorithm[algorithm]; ok {
		counters.total.Add(1)
		if allowed {
			counters.allowed.Add(1)
		} else {
			counters.blocked.Add(1)
		}
	}
}

// Snapshot 获取当前统计快照
func (a *Aggregator) Snapshot() *Snapshot {
	byAlgorithm := make(map[string]AlgorithmSnapshot, len(a.byAlgorithm))
	for algorithm, counters := range a.byAlgorithm {
		byAlgorithm[algorithm] = AlgorithmSnapshot{
			Total:   counters.total.Load(),
			Allowed: counters.allowed.Load(),
			Blocked: counters.blocked.Load(),
		}
	}

	return &Snapshot{
		TotalRequests:       a.total.Load(),
		AllowedRequests:     a.allowed.Load(),
		BlockedRequests:     a.blocked.Load(),
		UniqueKeys:          a.sketch.Estimate(),
		RequestsByAlgorithm: byAlgorithm,
	}
}

// Reset 清零全部计数器和基数草图，并要求存储后端清空限流状态
func (a *Aggregator) Reset(ctx context.Context) error {
	a.total.Store(0)
	a.allowed.Store(0)
	a.blocked.Store(0)
	for _, counters := range a.byAlgorithm {
		counters.total.Store(0)
		counters.allowed.Store(0)
		counters.blocked.Store(0)
	}
	a.sketch.Reset()

	if a.backend != nil {
		return a.backend.Reset(ctx)
	}
	return nil
}
