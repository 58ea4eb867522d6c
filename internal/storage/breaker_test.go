package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowfence/flowfence-go/internal/clock"
)

// errUnavailable 模拟后端故障
var errUnavailable = errors.New("backend unavailable")

// failingBackend 对全部操作返回错误的后端实现
type failingBackend struct{}

func (f *failingBackend) Increment(ctx context.Context, key string, windowMs int64) (int64, error) {
	return 0, errUnavailable
}
func (f *failingBackend) Get(ctx context.Context, key string) (int64, bool, error) {
	return 0, false, errUnavailable
}
func (f *failingBackend) Set(ctx context.Context, key string, value int64, windowMs int64) error {
	return errUnavailable
}
func (f *failingBackend) Delete(ctx context.Context, key string) error { return errUnavailable }
func (f *failingBackend) AddTimestamp(ctx context.Context, key string, t int64, windowMs int64) error {
	return errUnavailable
}
func (f *failingBackend) GetTimestamps(ctx context.Context, key string, minT int64) ([]int64, error) {
	return nil, errUnavailable
}
func (f *failingBackend) RemoveOldTimestamps(ctx context.Context, key string, minT int64) error {
	return errUnavailable
}
func (f *failingBackend) GetBucketState(ctx context.Context, key string) (*BucketState, error) {
	return nil, errUnavailable
}
func (f *failingBackend) SetBucketState(ctx context.Context, key string, state *BucketState, ttlMs int64) error {
	return errUnavailable
}
func (f *failingBackend) GetQueue(ctx context.Context, key string) (*QueueState, error) {
	return nil, errUnavailable
}
func (f *failingBackend) SetQueue(ctx context.Context, key string, state *QueueState, ttlMs int64) error {
	return errUnavailable
}
func (f *failingBackend) Reset(ctx context.Context) error { return errUnavailable }
func (f *failingBackend) Type() string                    { return "failing" }
func (f *failingBackend) Close() error                    { return nil }

func TestBreakerBackend_PassThrough(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryBackend(clock.NewMockClock(0), time.Hour)
	defer inner.Close()

	backend := NewBreakerBackend(inner, nil, nil)

	value, err := backend.Increment(ctx, "key", 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)

	require.NoError(t, backend.Set(ctx, "key", 5, 10000))
	value, ok, err := backend.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), value)

	assert.Equal(t, inner.Type(), backend.Type())
}

func TestBreakerBackend_OpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	backend := NewBreakerBackend(&failingBackend{}, &BreakerSettings{
		Threshold:   0.5,
		CooldownMs:  30000,
		MaxRequests: 1,
		IntervalMs:  10000,
	}, nil)

	// Feed failures until the breaker trips
	for i := 0; i < breakerMinRequests; i++ {
		_, err := backend.Increment(ctx, "key", 10000)
		assert.ErrorIs(t, err, errUnavailable)
	}

	// Once open, calls fail fast without reaching the inner backend
	_, err := backend.Increment(ctx, "key", 10000)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	assert.Equal(t, gobreaker.StateOpen, backend.(*breakerBackend).State())
}
