package storage

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/flowfence/flowfence-go/internal/clock"
	"github.com/flowfence/flowfence-go/internal/constants"
)

// 内存后端常量定义
const (
	// shardCount 分片数量，必须为2的幂
	shardCount = 32

	// DefaultJanitorInterval 默认过期清理周期
	DefaultJanitorInterval = time.Minute
)

// counterEntry 代表计数器条目
type counterEntry struct {
	value    int64 // 计数器当前值
	expireAt int64 // 过期时间（毫秒级Unix时间戳）
}

// logEntry 代表时间戳日志条目
type logEntry struct {
	timestamps []int64 // 升序排列的事件时间戳
	expireAt   int64   // 过期时间（毫秒级Unix时间戳）
}

// bucketEntry 代表令牌桶状态条目
type bucketEntry struct {
	state    BucketState
	expireAt int64
}

// queueEntry 代表漏桶队列状态条目
type queueEntry struct {
	state    QueueState
	expireAt int64
}

// shard 代表一个存储分片，持有四类按键状态映射
type shard struct {
	mu       sync.Mutex
	counters map[string]*counterEntry
	logs     map[string]*logEntry
	buckets  map[string]*bucketEntry
	queues   map[string]*queueEntry
}

// newShard 创建新的存储分片实例
func newShard() *shard {
	return &shard{
		counters: make(map[string]*counterEntry),
		logs:     make(map[string]*logEntry),
		buckets:  make(map[string]*bucketEntry),
		queues:   make(map[string]*queueEntry),
	}
}

// memoryBackend 代表进程内存储后端实现
//
// 按键状态分散在多个分片中，分片内由互斥锁保护。
// 后台清理任务按固定周期扫描并删除过期条目以约束内存。
// 仅适用于单节点部署，进程重启后状态丢失。
type memoryBackend struct {
	shards   [shardCount]*shard
	clk      clock.Clock
	closed   atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	janitor  *time.Ticker
}

// NewMemoryBackend 创建新的进程内存储后端实例
// clk: 时间源，用于条目过期判断
// janitorInterval: 过期清理周期，小于等于0时使用默认值
func NewMemoryBackend(clk clock.Clock, janitorInterval time.Duration) Backend {
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	if janitorInterval <= 0 {
		janitorInterval = DefaultJanitorInterval
	}

	b := &memoryBackend{
		clk:     clk,
		stopCh:  make(chan struct{}),
		janitor: time.NewTicker(janitorInterval),
	}
	for i := range b.shards {
		b.shards[i] = newShard()
	}

	// 启动后台清理任务
	go b.runJanitor()

	return b
}

// shardFor 根据key的哈希值选择分片
func (b *memoryBackend) shardFor(key string) *shard {
	return b.shards[xxhash.Sum64String(key)&(shardCount-1)]
}

// runJanitor 周期性扫描并删除过期条目
func (b *memoryBackend) runJanitor() {
	for {
		select {
		case <-b.stopCh:
			return
		case <-b.janitor.C:
			b.sweep()
		}
	}
}

// sweep 执行一轮过期清理，每个分片短暂持锁
func (b *memoryBackend) sweep() {
	now := b.clk.Now()
	for _, s := range b.shards {
		s.mu.Lock()
		for key, e := range s.counters {
			if e.expireAt <= now {
				delete(s.counters, key)
			}
		}
		for key, e := range s.logs {
			if e.expireAt <= now {
				delete(s.logs, key)
			}
		}
		for key, e := range s.buckets {
			if e.expireAt <= now {
				delete(s.buckets, key)
			}
		}
		for key, e := range s.queues {
			if e.expireAt <= now {
				delete(s.queues, key)
			}
		}
		s.mu.Unlock()
	}
}

// Increment 原子地将指定key的计数器加1
// TTL仅在条目首次创建时绑定，空闲key会略早过期
func (b *memoryBackend) Increment(ctx context.Context, key string, windowMs int64) (int64, error) {
	if b.closed.Load() {
		return 0, ErrBackendClosed
	}
	if windowMs <= 0 {
		return 0, ErrInvalidWindow
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := b.clk.Now()
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.counters[key]
	if !ok || e.expireAt <= now {
		s.counters[key] = &counterEntry{value: 1, expireAt: now + windowMs}
		return 1, nil
	}

	e.value++
	return e.value, nil
}

// Get 获取指定key的计数器当前值
func (b *memoryBackend) Get(ctx context.Context, key string) (int64, bool, error) {
	if b.closed.Load() {
		return 0, false, ErrBackendClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	now := b.clk.Now()
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.counters[key]
	if !ok || e.expireAt <= now {
		return 0, false, nil
	}
	return e.value, true, nil
}

// Set 覆盖指定key的计数器值并设置TTL
func (b *memoryBackend) Set(ctx context.Context, key string, value int64, windowMs int64) error {
	if b.closed.Load() {
		return ErrBackendClosed
	}
	if windowMs <= 0 {
		return ErrInvalidWindow
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := b.clk.Now()
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[key] = &counterEntry{value: value, expireAt: now + windowMs}
	return nil
}

// Delete 删除指定逻辑key关联的全部状态
func (b *memoryBackend) Delete(ctx context.Context, key string) error {
	if b.closed.Load() {
		return ErrBackendClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counters, key)
	delete(s.logs, key)
	delete(s.buckets, key)
	delete(s.queues, key)
	return nil
}

// AddTimestamp 将时间戳追加到指定key的日志中并刷新TTL
func (b *memoryBackend) AddTimestamp(ctx context.Context, key string, t int64, windowMs int64) error {
	if b.closed.Load() {
		return ErrBackendClosed
	}
	if windowMs <= 0 {
		return ErrInvalidWindow
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := b.clk.Now()
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.logs[key]
	if !ok || e.expireAt <= now {
		s.logs[key] = &logEntry{timestamps: []int64{t}, expireAt: now + windowMs}
		return nil
	}

	// 常见情况是追加到尾部，乱序插入时保持升序
	if n := len(e.timestamps); n == 0 || e.timestamps[n-1] <= t {
		e.timestamps = append(e.timestamps, t)
	} else {
		idx := sort.Search(n, func(i int) bool { return e.timestamps[i] > t })
		e.timestamps = append(e.timestamps, 0)
		copy(e.timestamps[idx+1:], e.timestamps[idx:])
		e.timestamps[idx] = t
	}
	e.expireAt = now + windowMs
	return nil
}

// GetTimestamps 返回指定key日志中大于等于minT的时间戳
func (b *memoryBackend) GetTimestamps(ctx context.Context, key string, minT int64) ([]int64, error) {
	if b.closed.Load() {
		return nil, ErrBackendClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := b.clk.Now()
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.logs[key]
	if !ok || e.expireAt <= now {
		return nil, nil
	}

	idx := sort.Search(len(e.timestamps), func(i int) bool { return e.timestamps[i] >= minT })
	if idx == len(e.timestamps) {
		return nil, nil
	}

	out := make([]int64, len(e.timestamps)-idx)
	copy(out, e.timestamps[idx:])
	return out, nil
}

// RemoveOldTimestamps 删除指定key日志中小于minT的全部时间戳
func (b *memoryBackend) RemoveOldTimestamps(ctx context.Context, key string, minT int64) error {
	if b.closed.Load() {
		return ErrBackendClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := b.clk.Now()
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.logs[key]
	if !ok || e.expireAt <= now {
		return nil
	}

	idx := sort.Search(len(e.timestamps), func(i int) bool { return e.timestamps[i] >= minT })
	if idx == 0 {
		return nil
	}
	e.timestamps = append(e.timestamps[:0], e.timestamps[idx:]...)
	return nil
}

// GetBucketState 获取指定key的令牌桶状态
func (b *memoryBackend) GetBucketState(ctx context.Context, key string) (*BucketState, error) {
	if b.closed.Load() {
		return nil, ErrBackendClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := b.clk.Now()
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.buckets[key]
	if !ok || e.expireAt <= now {
		return nil, nil
	}
	state := e.state
	return &state, nil
}

// SetBucketState 覆盖指定key的令牌桶状态并设置TTL
func (b *memoryBackend) SetBucketState(ctx context.Context, key string, state *BucketState, ttlMs int64) error {
	if b.closed.Load() {
		return ErrBackendClosed
	}
	if ttlMs <= 0 {
		return ErrInvalidWindow
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := b.clk.Now()
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets[key] = &bucketEntry{state: *state, expireAt: now + ttlMs}
	return nil
}

// GetQueue 获取指定key的漏桶队列状态
func (b *memoryBackend) GetQueue(ctx context.Context, key string) (*QueueState, error) {
	if b.closed.Load() {
		return nil, ErrBackendClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := b.clk.Now()
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.queues[key]
	if !ok || e.expireAt <= now {
		return nil, nil
	}

	state := QueueState{
		Arrivals:   append([]int64(nil), e.state.Arrivals...),
		LastLeakMs: e.state.LastLeakMs,
	}
	return &state, nil
}

// SetQueue 覆盖指定key的漏桶队列状态并设置TTL
func (b *memoryBackend) SetQueue(ctx context.Context, key string, state *QueueState, ttlMs int64) error {
	if b.closed.Load() {
		return ErrBackendClosed
	}
	if ttlMs <= 0 {
		return ErrInvalidWindow
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := b.clk.Now()
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queues[key] = &queueEntry{
		state: QueueState{
			Arrivals:   append([]int64(nil), state.Arrivals...),
			LastLeakMs: state.LastLeakMs,
		},
		expireAt: now + ttlMs,
	}
	return nil
}

// Reset 删除该后端下的全部限流状态
func (b *memoryBackend) Reset(ctx context.Context) error {
	if b.closed.Load() {
		return ErrBackendClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, s := range b.shards {
		s.mu.Lock()
		s.counters = make(map[string]*counterEntry)
		s.logs = make(map[string]*logEntry)
		s.buckets = make(map[string]*bucketEntry)
		s.queues = make(map[string]*queueEntry)
		s.mu.Unlock()
	}
	return nil
}

// Type 获取后端类型
func (b *memoryBackend) Type() string {
	return constants.StorageTypeMemory
}

// Close 关闭后端并停止后台清理任务
func (b *memoryBackend) Close() error {
	b.stopOnce.Do(func() {
		b.closed.Store(true)
		b.janitor.Stop()
		close(b.stopCh)
	})
	return nil
}
