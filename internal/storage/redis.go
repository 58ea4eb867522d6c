package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowfence/flowfence-go/internal/constants"
)

// Redis键命名空间常量定义
const (
	// redisKeyPrefix 所有限流键的公共前缀
	redisKeyPrefix = "flowfence:"

	// redisCounterPrefix 计数器键前缀
	redisCounterPrefix = redisKeyPrefix + "c:"

	// redisLogPrefix 时间戳日志键前缀
	redisLogPrefix = redisKeyPrefix + "l:"

	// redisBucketPrefix 令牌桶状态键前缀
	redisBucketPrefix = redisKeyPrefix + "b:"

	// redisQueuePrefix 漏桶队列状态键前缀
	redisQueuePrefix = redisKeyPrefix + "q:"

	// redisPingTimeout 连接检查超时时间
	redisPingTimeout = 5 * time.Second

	// redisScanBatch Reset扫描批次大小
	redisScanBatch = 256
)

// redisBackend 代表基于Redis的分布式存储后端实现
//
// 计数器依赖Redis原生的原子INCR，时间戳日志依赖有序集合的
// 原子范围操作。跨进程共享状态，单键操作原子，不提供多键事务。
type redisBackend struct {
	client *redis.Client

	// seq 为同毫秒时间戳生成唯一的有序集合成员后缀
	seq atomic.Int64
}

// NewRedisBackend 创建新的Redis存储后端实例并检查连接
// client: Redis客户端实例
func NewRedisBackend(client *redis.Client) (Backend, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisBackend{client: client}, nil
}

// Increment 原子地将指定key的计数器加1
// INCR与EXPIRE NX在同一事务管道中执行，TTL仅在键首次创建时绑定
func (b *redisBackend) Increment(ctx context.Context, key string, windowMs int64) (int64, error) {
	if windowMs <= 0 {
		return 0, ErrInvalidWindow
	}

	k := redisCounterPrefix + key
	pipe := b.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, time.Duration(windowMs)*time.Millisecond)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return incr.Val(), nil
}

// Get 获取指定key的计数器当前值
func (b *redisBackend) Get(ctx context.Context, key string) (int64, bool, error) {
	data, err := b.client.Get(ctx, redisCounterPrefix+key).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get counter: %w", err)
	}

	value, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("unexpected counter value %q: %w", data, err)
	}
	return value, true, nil
}

// Set 覆盖指定key的计数器值并设置TTL
func (b *redisBackend) Set(ctx context.Context, key string, value int64, windowMs int64) error {
	if windowMs <= 0 {
		return ErrInvalidWindow
	}
	return b.client.Set(ctx, redisCounterPrefix+key, value, time.Duration(windowMs)*time.Millisecond).Err()
}

// Delete 删除指定逻辑key关联的全部状态
func (b *redisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx,
		redisCounterPrefix+key,
		redisLogPrefix+key,
		redisBucketPrefix+key,
		redisQueuePrefix+key,
	).Err()
}

// AddTimestamp 将时间戳追加到指定key的日志中并刷新TTL
// 有序集合成员使用"时间戳-序号"格式，同毫秒事件互不覆盖
func (b *redisBackend) AddTimestamp(ctx context.Context, key string, t int64, windowMs int64) error {
	if windowMs <= 0 {
		return ErrInvalidWindow
	}

	k := redisLogPrefix + key
	member := strconv.FormatInt(t, 10) + "-" + strconv.FormatInt(b.seq.Add(1), 10)

	pipe := b.client.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(t), Member: member})
	pipe.PExpire(ctx, k, time.Duration(windowMs)*time.Millisecond)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add timestamp: %w", err)
	}
	return nil
}

// GetTimestamps 返回指定key日志中大于等于minT的时间戳
func (b *redisBackend) GetTimestamps(ctx context.Context, key string, minT int64) ([]int64, error) {
	members, err := b.client.ZRangeByScore(ctx, redisLogPrefix+key, &redis.ZRangeBy{
		Min: strconv.FormatInt(minT, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get timestamps: %w", err)
	}

	timestamps := make([]int64, 0, len(members))
	for _, member := range members {
		raw := member
		if idx := strings.IndexByte(member, '-'); idx >= 0 {
			raw = member[:idx]
		}
		t, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected timestamp member %q: %w", member, err)
		}
		timestamps = append(timestamps, t)
	}
	return timestamps, nil
}

// RemoveOldTimestamps 删除指定key日志中小于minT的全部时间戳
func (b *redisBackend) RemoveOldTimestamps(ctx context.Context, key string, minT int64) error {
	err := b.client.ZRemRangeByScore(ctx, redisLogPrefix+key, "-inf", "("+strconv.FormatInt(minT, 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to remove old timestamps: %w", err)
	}
	return nil
}

// GetBucketState 获取指定key的令牌桶状态
func (b *redisBackend) GetBucketState(ctx context.Context, key string) (*BucketState, error) {
	data, err := b.client.Get(ctx, redisBucketPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket state: %w", err)
	}

	var state BucketState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode bucket state: %w", err)
	}
	return &state, nil
}

// SetBucketState 覆盖指定key的令牌桶状态并设置TTL
func (b *redisBackend) SetBucketState(ctx context.Context, key string, state *BucketState, ttlMs int64) error {
	if ttlMs <= 0 {
		return ErrInvalidWindow
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode bucket state: %w", err)
	}
	return b.client.Set(ctx, redisBucketPrefix+key, data, time.Duration(ttlMs)*time.Millisecond).Err()
}

// GetQueue 获取指定key的漏桶队列状态
func (b *redisBackend) GetQueue(ctx context.Context, key string) (*QueueState, error) {
	data, err := b.client.Get(ctx, redisQueuePrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue state: %w", err)
	}

	var state QueueState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode queue state: %w", err)
	}
	return &state, nil
}

// SetQueue 覆盖指定key的漏桶队列状态并设置TTL
func (b *redisBackend) SetQueue(ctx context.Context, key string, state *QueueState, ttlMs int64) error {
	if ttlMs <= 0 {
		return ErrInvalidWindow
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode queue state: %w", err)
	}
	return b.client.Set(ctx, redisQueuePrefix+key, data, time.Duration(ttlMs)*time.Millisecond).Err()
}

// Reset 删除该后端下的全部限流状态
// 通过SCAN遍历公共前缀下的键，避免阻塞Redis
func (b *redisBackend) Reset(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := b.client.Scan(ctx, cursor, redisKeyPrefix+"*", redisScanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			if err := b.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Type 获取后端类型
func (b *redisBackend) Type() string {
	return constants.StorageTypeRedis
}

// Close 关闭Redis客户端连接
func (b *redisBackend) Close() error {
	return b.client.Close()
}
