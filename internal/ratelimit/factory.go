package ratelimit

import (
	"fmt"

	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/storage"
)

// AlgorithmFactory 代表限流算法工厂接口
type AlgorithmFactory interface {
	// Create 根据配置创建限流算法
	// config: 限流算法配置
	// backend: 存储后端
	Create(config *Config, backend storage.Backend) (Algorithm, error)
}

// algorithmFactory 代表限流算法工厂实现
type algorithmFactory struct{}

// NewFactory 创建新的限流算法工厂实例
func NewFactory() AlgorithmFactory {
	return &algorithmFactory{}
}

// Create 根据配置创建对应的限流算法
// 无效配置在此处暴露，中间件不可能以非法配置构造出来
func (f *algorithmFactory) Create(config *Config, backend storage.Backend) (Algorithm, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if backend == nil {
		return nil, ErrNilBackend
	}

	cfg := *config
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	switch cfg.Algorithm {
	case constants.AlgorithmTokenBucket:
		return NewTokenBucketAlgorithm(&cfg, backend), nil

	case constants.AlgorithmLeakingBucket:
		return NewLeakingBucketAlgorithm(&cfg, backend), nil

	case constants.AlgorithmFixedWindow:
		return NewFixedWindowAlgorithm(&cfg, backend), nil

	case constants.AlgorithmSlidingWindowLog:
		return NewSlidingWindowLogAlgorithm(&cfg, backend), nil

	case constants.AlgorithmSlidingWindowCounter:
		return NewSlidingWindowCounterAlgorithm(&cfg, backend), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, cfg.Algorithm)
	}
}

// Algorithms 返回全部受支持的算法标识符
func Algorithms() []string {
	return []string{
		constants.AlgorithmTokenBucket,
		constants.AlgorithmLeakingBucket,
		constants.AlgorithmFixedWindow,
		constants.AlgorithmSlidingWindowLog,
		constants.AlgorithmSlidingWindowCounter,
	}
}
