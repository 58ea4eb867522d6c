package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowfence/flowfence-go/internal/clock"
	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/storage"
)

// newTestAlgorithm 通过工厂创建算法实例，后端使用内存实现
func newTestAlgorithm(t *testing.T, config *Config, clk clock.Clock) Algorithm {
	t.Helper()

	backend := storage.NewMemoryBackend(clk, time.Hour)
	t.Cleanup(func() { backend.Close() })

	algorithm, err := NewFactory().Create(config, backend)
	require.NoError(t, err)
	return algorithm
}

func TestTokenBucket_BurstThenThrottle(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:        constants.AlgorithmTokenBucket,
		WindowMs:         10000,
		MaxRequests:      10,
		BucketSize:       10,
		RefillRate:       1,
		RefillIntervalMs: 1000,
	}, clk)

	// Full bucket allows an initial burst of bucketSize requests
	for i := 0; i < 10; i++ {
		decision, err := algorithm.Check(ctx, "client", clk.Now())
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "burst request %d", i+1)
		assert.Equal(t, 10, decision.Limit)
		assert.Equal(t, 9-i, decision.Remaining)
	}

	// Bucket empty, less than one refill interval elapsed
	clk.Set(500)
	decision, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
	assert.Equal(t, 1, decision.RetryAfter)

	// The blocked probe did not advance the refill epoch, so three full
	// intervals have elapsed since t=0 and three tokens are available
	clk.Set(3000)
	for i := 0; i < 3; i++ {
		decision, err = algorithm.Check(ctx, "client", clk.Now())
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "refilled request %d", i+1)
	}

	decision, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestTokenBucket_FirstRequestAlwaysAllowed(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(123456789)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:   constants.AlgorithmTokenBucket,
		WindowMs:    1000,
		MaxRequests: 1,
	}, clk)

	decision, err := algorithm.Check(ctx, "fresh", clk.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestTokenBucket_NeverExceedsCapacity(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:        constants.AlgorithmTokenBucket,
		WindowMs:         10000,
		MaxRequests:      5,
		BucketSize:       5,
		RefillRate:       5,
		RefillIntervalMs: 1000,
	}, clk)

	// Drain two tokens, then idle far longer than needed to refill
	for i := 0; i < 2; i++ {
		_, err := algorithm.Check(ctx, "client", clk.Now())
		require.NoError(t, err)
	}
	clk.Advance(time.Hour)

	// Refill caps at bucketSize; remaining reflects one consumed token
	decision, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 4, decision.Remaining)
}

func TestTokenBucket_TokensNeverNegative(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:        constants.AlgorithmTokenBucket,
		WindowMs:         10000,
		MaxRequests:      3,
		BucketSize:       3,
		RefillRate:       1,
		RefillIntervalMs: 1000,
	}, clk)

	// Hammer well past capacity; remaining must stay within [0, bucketSize]
	for i := 0; i < 20; i++ {
		decision, err := algorithm.Check(ctx, "client", clk.Now())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, decision.Remaining, 0)
		assert.LessOrEqual(t, decision.Remaining, 3)
	}
}

func TestTokenBucket_FractionalIntervalPreserved(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:        constants.AlgorithmTokenBucket,
		WindowMs:         10000,
		MaxRequests:      2,
		BucketSize:       2,
		RefillRate:       1,
		RefillIntervalMs: 1000,
	}, clk)

	// Drain the bucket
	for i := 0; i < 2; i++ {
		_, err := algorithm.Check(ctx, "client", clk.Now())
		require.NoError(t, err)
	}

	// 1.5 intervals: one token refilled, epoch advances to now and the
	// half interval is dropped by the floor
	clk.Set(1500)
	decision, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Only half an interval since the last refill: still empty
	clk.Set(2000)
	decision, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	clk.Set(2500)
	decision, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestTokenBucket_Reset(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:   constants.AlgorithmTokenBucket,
		WindowMs:    10000,
		MaxRequests: 1,
	}, clk)

	decision, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	require.NoError(t, algorithm.Reset(ctx, "client"))

	decision, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestTokenBucket_Type(t *testing.T) {
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:   constants.AlgorithmTokenBucket,
		WindowMs:    1000,
		MaxRequests: 1,
	}, clk)
	assert.Equal(t, constants.AlgorithmTokenBucket, algorithm.Type())
}
