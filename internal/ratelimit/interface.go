// Package ratelimit 提供可插拔的限流决策引擎和HTTP请求拦截中间件
//
// 五种决策算法共享同一个能力：对(key, now)给出一次决策。算法本身
// 无状态，全部按键状态通过storage.Backend读写，时间通过注入的
// clock.Clock获取。中间件把算法、统计和指标绑定到gin请求管道上，
// 存储故障时放行请求（fail-open）。
package ratelimit

import (
	"context"
	"errors"

	"github.com/flowfence/flowfence-go/internal/constants"
)

// 配置相关错误定义
var (
	ErrInvalidWindow         = errors.New("windowMs must be greater than 0")
	ErrInvalidMaxRequests    = errors.New("maxRequests must be greater than 0")
	ErrInvalidBucketSize     = errors.New("bucketSize must be greater than 0")
	ErrInvalidRefillRate     = errors.New("refillRate must be greater than 0")
	ErrInvalidRefillInterval = errors.New("refillIntervalMs must be greater than 0")
	ErrInvalidQueueSize      = errors.New("queueSize must be greater than 0")
	ErrInvalidProcessingRate = errors.New("processingRate must be greater than 0")
	ErrUnknownAlgorithm      = errors.New("unknown rate limit algorithm")
	ErrNilBackend            = errors.New("storage backend cannot be nil")
	ErrNilConfig             = errors.New("rate limit config cannot be nil")
)

// Decision 代表一次限流决策的结果
type Decision struct {
	// Allowed 请求是否放行
	Allowed bool

	// Limit 向客户端报告的有效容量
	Limit int

	// Remaining 剩余配额，被拒绝时为0
	Remaining int

	// CurrentCount 观测到的负载（精确值或估计值，取决于算法）
	CurrentCount int

	// ResetAt 客户端恢复全部配额的时间（Unix秒）
	ResetAt int64

	// RetryAfter 重试等待时间（秒），仅在拒绝时有效且不小于1
	RetryAfter int
}

// Algorithm 代表限流决策算法接口
type Algorithm interface {
	// Check 对指定key执行一次限流决策
	// key: 客户端键
	// nowMs: 当前时间（毫秒级Unix时间戳）
	Check(ctx context.Context, key string, nowMs int64) (*Decision, error)

	// Reset 清除指定key的限流状态
	Reset(ctx context.Context, key string) error

	// Type 获取算法标识符
	Type() string
}

// Config 代表限流算法配置，每个限流器实例不可变
type Config struct {
	// Algorithm 算法标识符
	Algorithm string

	// WindowMs 逻辑限流窗口时长（毫秒）
	WindowMs int64

	// MaxRequests 单个窗口内允许的请求数
	MaxRequests int

	// BucketSize 令牌桶容量（令牌桶算法）
	BucketSize int

	// RefillRate 每个补充周期补充的令牌数（令牌桶算法）
	RefillRate int

	// RefillIntervalMs 令牌补充周期（毫秒，令牌桶算法）
	RefillIntervalMs int64

	// QueueSize 队列长度上限（漏桶算法）
	QueueSize int

	// ProcessingRate 每秒处理的请求数（漏桶算法）
	ProcessingRate float64
}

// normalize 为算法专属字段填充默认值
func (c *Config) normalize() {
	if c.BucketSize == 0 {
		c.BucketSize = c.MaxRequests
	}
	if c.RefillRate == 0 {
		c.RefillRate = c.MaxRequests
	}
	if c.RefillIntervalMs == 0 {
		c.RefillIntervalMs = c.WindowMs
	}
	if c.QueueSize == 0 {
		c.QueueSize = c.MaxRequests
	}
	if c.ProcessingRate == 0 && c.WindowMs > 0 {
		c.ProcessingRate = float64(c.MaxRequests) / (float64(c.WindowMs) / 1000.0)
	}
}

// validate 检查配置的有效性，违规在构造期暴露
func (c *Config) validate() error {
	if c.WindowMs <= 0 {
		return ErrInvalidWindow
	}
	if c.MaxRequests <= 0 {
		return ErrInvalidMaxRequests
	}

	switch c.Algorithm {
	case constants.AlgorithmTokenBucket:
		if c.BucketSize <= 0 {
			return ErrInvalidBucketSize
		}
		if c.RefillRate <= 0 {
			return ErrInvalidRefillRate
		}
		if c.RefillIntervalMs <= 0 {
			return ErrInvalidRefillInterval
		}

	case constants.AlgorithmLeakingBucket:
		if c.QueueSize <= 0 {
			return ErrInvalidQueueSize
		}
		if c.ProcessingRate <= 0 {
			return ErrInvalidProcessingRate
		}
	}

	return nil
}

// ttlMs 返回按键状态的TTL时长，取窗口时长的2倍以跨越边界效应
func (c *Config) ttlMs() int64 {
	return c.WindowMs * 2
}
