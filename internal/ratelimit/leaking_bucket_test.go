package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowfence/flowfence-go/internal/clock"
	"github.com/flowfence/flowfence-go/internal/constants"
)

func TestLeakingBucket_QueueFillAndLeak(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:      constants.AlgorithmLeakingBucket,
		WindowMs:       10000,
		MaxRequests:    3,
		QueueSize:      3,
		ProcessingRate: 1.0,
	}, clk)

	// Queue admits up to queueSize arrivals
	for i := 0; i < 3; i++ {
		decision, err := algorithm.Check(ctx, "client", clk.Now())
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "request %d", i+1)
		assert.Equal(t, 3, decision.Limit)
	}

	// Fourth arrival finds the queue full
	decision, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
	assert.Equal(t, 1, decision.RetryAfter)

	// After 1.2s one slot has leaked
	clk.Set(1200)
	decision, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestLeakingBucket_QueueNeverExceedsSize(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:      constants.AlgorithmLeakingBucket,
		WindowMs:       10000,
		MaxRequests:    2,
		QueueSize:      2,
		ProcessingRate: 0.5,
	}, clk)

	for i := 0; i < 10; i++ {
		decision, err := algorithm.Check(ctx, "client", clk.Now())
		require.NoError(t, err)
		assert.LessOrEqual(t, decision.CurrentCount, 2)
		assert.GreaterOrEqual(t, decision.Remaining, 0)
	}
}

func TestLeakingBucket_FIFODrain(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:      constants.AlgorithmLeakingBucket,
		WindowMs:       10000,
		MaxRequests:    4,
		QueueSize:      4,
		ProcessingRate: 2.0,
	}, clk)

	// Fill the queue
	for i := 0; i < 4; i++ {
		decision, err := algorithm.Check(ctx, "client", clk.Now())
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}

	// 1s at 2 req/s leaks two slots: two more arrivals fit, the third does not
	clk.Set(1000)
	for i := 0; i < 2; i++ {
		decision, err := algorithm.Check(ctx, "client", clk.Now())
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "drained slot %d", i+1)
	}
	decision, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestLeakingBucket_SubSecondRateRetryAfter(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:      constants.AlgorithmLeakingBucket,
		WindowMs:       10000,
		MaxRequests:    1,
		QueueSize:      1,
		ProcessingRate: 0.25,
	}, clk)

	_, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)

	// One request drains every 4 seconds
	decision, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 4, decision.RetryAfter)
}

func TestLeakingBucket_IndependentKeys(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:      constants.AlgorithmLeakingBucket,
		WindowMs:       10000,
		MaxRequests:    1,
		QueueSize:      1,
		ProcessingRate: 1.0,
	}, clk)

	decision, err := algorithm.Check(ctx, "a", clk.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = algorithm.Check(ctx, "b", clk.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = algorithm.Check(ctx, "a", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}
