package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowfence/flowfence-go/internal/clock"
	"github.com/flowfence/flowfence-go/internal/constants"
)

func TestSlidingWindowLog_DeniesAcrossBoundary(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:   constants.AlgorithmSlidingWindowLog,
		WindowMs:    10000,
		MaxRequests: 5,
	}, clk)

	// Five requests just before the fixed-window boundary
	clk.Set(9900)
	for i := 0; i < 5; i++ {
		decision, err := algorithm.Check(ctx, "client", clk.Now())
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "pre-boundary request %d", i+1)
	}

	// Unlike the fixed window, the trailing 10s still holds five events:
	// requests after the boundary are denied until those events age out
	clk.Set(10100)
	decision, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)

	clk.Set(19800)
	decision, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	// At t=19.9s the events from t=9.9s sit exactly at the window start
	// and still count; one millisecond later they have aged out and
	// capacity is restored
	clk.Set(19901)
	decision, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestSlidingWindowLog_LimitNeverExceededInAnyWindow(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:   constants.AlgorithmSlidingWindowLog,
		WindowMs:    1000,
		MaxRequests: 3,
	}, clk)

	// Issue requests at a fixed cadence and collect allowed timestamps
	var allowedAt []int64
	for nowMs := int64(0); nowMs < 5000; nowMs += 100 {
		clk.Set(nowMs)
		decision, err := algorithm.Check(ctx, "client", clk.Now())
		require.NoError(t, err)
		if decision.Allowed {
			allowedAt = append(allowedAt, nowMs)
		}
	}

	// No trailing 1s interval may contain more than 3 allowed decisions
	for i := range allowedAt {
		count := 0
		for j := i; j < len(allowedAt); j++ {
			if allowedAt[j]-allowedAt[i] < 1000 {
				count++
			}
		}
		assert.LessOrEqual(t, count, 3)
	}
}

func TestSlidingWindowLog_RetryAfterFromOldestEvent(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:   constants.AlgorithmSlidingWindowLog,
		WindowMs:    10000,
		MaxRequests: 2,
	}, clk)

	clk.Set(1000)
	_, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)

	clk.Set(4000)
	_, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)

	// Oldest event at t=1s leaves the window at t=11s
	clk.Set(5000)
	decision, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 6, decision.RetryAfter)
	assert.Equal(t, int64(11), decision.ResetAt)
}

func TestSlidingWindowLog_RemainingAccounting(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(0)
	algorithm := newTestAlgorithm(t, &Config{
		Algorithm:   constants.AlgorithmSlidingWindowLog,
		WindowMs:    10000,
		MaxRequests: 3,
	}, clk)

	decision, err := algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, decision.Remaining)
	assert.Equal(t, 1, decision.CurrentCount)

	decision, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, decision.Remaining)

	decision, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, decision.Remaining)

	decision, err = algorithm.Check(ctx, "client", clk.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
	assert.Equal(t, 3, decision.CurrentCount)
}
