package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	"github.com/flowfence/flowfence-go/internal/clock"
	"github.com/flowfence/flowfence-go/internal/config"
	"github.com/flowfence/flowfence-go/internal/constants"
)

// 工厂相关错误定义
var (
	ErrInvalidStorageType = errors.New("invalid storage type")
	ErrNilStorageConfig   = errors.New("storage config cannot be nil")
	ErrMissingRedisConfig = errors.New("redis storage requires redis configuration")
)

// BackendFactory 代表存储后端工厂接口
type BackendFactory interface {
	// Create 根据配置创建存储后端
	// storageConfig: 存储后端配置
	// clk: 时间源
	Create(storageConfig *config.StorageConfig, clk clock.Clock) (Backend, error)
}

// backendFactory 代表存储后端工厂实现
type backendFactory struct {
	logger *logr.Logger
}

// NewFactory 创建新的存储后端工厂实例
// logger: 日志记录器，用于熔断器状态变化记录
func NewFactory(logger *logr.Logger) BackendFactory {
	return &backendFactory{logger: logger}
}

// Create 根据配置创建对应的存储后端
// 配置了熔断器时返回带熔断保护的包装后端
func (f *backendFactory) Create(storageConfig *config.StorageConfig, clk clock.Clock) (Backend, error) {
	if storageConfig == nil {
		return nil, ErrNilStorageConfig
	}

	var (
		backend Backend
		err     error
	)

	switch storageConfig.Type {
	case constants.StorageTypeMemory, "":
		backend = NewMemoryBackend(clk, time.Duration(storageConfig.JanitorIntervalMs)*time.Millisecond)

	case constants.StorageTypeRedis:
		if storageConfig.Redis == nil {
			return nil, ErrMissingRedisConfig
		}
		backend, err = NewRedisBackend(newRedisClient(storageConfig.Redis))
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidStorageType, storageConfig.Type)
	}

	// 配置了熔断器时包装后端
	if storageConfig.Breaker != nil {
		settings := &BreakerSettings{
			Threshold:   storageConfig.Breaker.Threshold,
			CooldownMs:  int64(storageConfig.Breaker.Cooldown),
			MaxRequests: storageConfig.Breaker.MaxRequests,
			IntervalMs:  int64(storageConfig.Breaker.Interval),
		}
		backend = NewBreakerBackend(backend, settings, f.logger)
	}

	return backend, nil
}

// newRedisClient 根据配置创建Redis客户端实例
func newRedisClient(redisConfig *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         redisConfig.Addr,
		Password:     redisConfig.Password,
		DB:           redisConfig.DB,
		PoolSize:     redisConfig.PoolSize,
		MinIdleConns: redisConfig.MinIdleConns,
		DialTimeout:  time.Duration(redisConfig.DialTimeout) * time.Millisecond,
		ReadTimeout:  time.Duration(redisConfig.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(redisConfig.WriteTimeout) * time.Millisecond,
	})
}
