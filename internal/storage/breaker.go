package storage

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/sony/gobreaker"
)

// 熔断器默认参数定义
const (
	// defaultBreakerThreshold 默认失败率阈值
	defaultBreakerThreshold = 0.5

	// defaultBreakerCooldownMs 默认熔断冷却时间（毫秒）
	defaultBreakerCooldownMs = 30000

	// defaultBreakerMaxRequests 半开状态下允许的探测请求数
	defaultBreakerMaxRequests = 3

	// defaultBreakerIntervalMs 失败率统计周期（毫秒）
	defaultBreakerIntervalMs = 10000

	// breakerMinRequests 熔断判定所需的最小请求数
	breakerMinRequests = 10
)

// BreakerSettings 代表存储后端熔断器配置
type BreakerSettings struct {
	// Threshold 触发熔断的失败率阈值，(0,1]
	Threshold float64

	// CooldownMs 熔断开启后的冷却时间（毫秒）
	CooldownMs int64

	// MaxRequests 半开状态下允许的探测请求数
	MaxRequests uint32

	// IntervalMs 失败率统计周期（毫秒）
	IntervalMs int64
}

// DefaultBreakerSettings 返回默认熔断器配置
func DefaultBreakerSettings() *BreakerSettings {
	return &BreakerSettings{
		Threshold:   defaultBreakerThreshold,
		CooldownMs:  defaultBreakerCooldownMs,
		MaxRequests: defaultBreakerMaxRequests,
		IntervalMs:  defaultBreakerIntervalMs,
	}
}

// breakerBackend 代表带熔断保护的存储后端包装器
//
// 每个存储操作经由熔断器执行。后端持续失败时熔断器开启，
// 后续操作立即返回错误而不是逐个等待超时，使中间件的
// fail-open路径快速生效。
type breakerBackend struct {
	inner Backend
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerBackend 创建带熔断保护的存储后端实例
// inner: 被包装的存储后端
// settings: 熔断器配置，nil时使用默认配置
// logger: 日志记录器，用于记录熔断器状态变化
func NewBreakerBackend(inner Backend, settings *BreakerSettings, logger *logr.Logger) Backend {
	if settings == nil {
		settings = DefaultBreakerSettings()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "storage-" + inner.Type(),
		MaxRequests: settings.MaxRequests,
		Interval:    time.Duration(settings.IntervalMs) * time.Millisecond,
		Timeout:     time.Duration(settings.CooldownMs) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.Threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Info("Storage circuit breaker state changed",
					"name", name, "from", from.String(), "to", to.String())
			}
		},
	})

	return &breakerBackend{inner: inner, cb: cb}
}

// Increment 经由熔断器执行原子自增
func (b *breakerBackend) Increment(ctx context.Context, key string, windowMs int64) (int64, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Increment(ctx, key, windowMs)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// Get 经由熔断器获取计数器值
func (b *breakerBackend) Get(ctx context.Context, key string) (int64, bool, error) {
	type getResult struct {
		value int64
		ok    bool
	}
	result, err := b.cb.Execute(func() (interface{}, error) {
		value, ok, err := b.inner.Get(ctx, key)
		return getResult{value: value, ok: ok}, err
	})
	if err != nil {
		return 0, false, err
	}
	r := result.(getResult)
	return r.value, r.ok, nil
}

// Set 经由熔断器覆盖计数器值
func (b *breakerBackend) Set(ctx context.Context, key string, value int64, windowMs int64) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Set(ctx, key, value, windowMs)
	})
	return err
}

// Delete 经由熔断器删除逻辑key的全部状态
func (b *breakerBackend) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Delete(ctx, key)
	})
	return err
}

// AddTimestamp 经由熔断器追加时间戳
func (b *breakerBackend) AddTimestamp(ctx context.Context, key string, t int64, windowMs int64) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.AddTimestamp(ctx, key, t, windowMs)
	})
	return err
}

// GetTimestamps 经由熔断器读取时间戳日志
func (b *breakerBackend) GetTimestamps(ctx context.Context, key string, minT int64) ([]int64, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.GetTimestamps(ctx, key, minT)
	})
	if err != nil {
		return nil, err
	}
	return result.([]int64), nil
}

// RemoveOldTimestamps 经由熔断器修剪时间戳日志
func (b *breakerBackend) RemoveOldTimestamps(ctx context.Context, key string, minT int64) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.RemoveOldTimestamps(ctx, key, minT)
	})
	return err
}

// GetBucketState 经由熔断器获取令牌桶状态
func (b *breakerBackend) GetBucketState(ctx context.Context, key string) (*BucketState, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.GetBucketState(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return result.(*BucketState), nil
}

// SetBucketState 经由熔断器覆盖令牌桶状态
func (b *breakerBackend) SetBucketState(ctx context.Context, key string, state *BucketState, ttlMs int64) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.SetBucketState(ctx, key, state, ttlMs)
	})
	return err
}

// GetQueue 经由熔断器获取漏桶队列状态
func (b *breakerBackend) GetQueue(ctx context.Context, key string) (*QueueState, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.GetQueue(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return result.(*QueueState), nil
}

// SetQueue 经由熔断器覆盖漏桶队列状态
func (b *breakerBackend) SetQueue(ctx context.Context, key string, state *QueueState, ttlMs int64) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.SetQueue(ctx, key, state, ttlMs)
	})
	return err
}

// Reset 经由熔断器删除全部限流状态
func (b *breakerBackend) Reset(ctx context.Context) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Reset(ctx)
	})
	return err
}

// Type 获取后端类型
func (b *breakerBackend) Type() string {
	return b.inner.Type()
}

// Close 关闭被包装的存储后端
func (b *breakerBackend) Close() error {
	return b.inner.Close()
}

// State 获取熔断器当前状态
func (b *breakerBackend) State() gobreaker.State {
	return b.cb.State()
}
