package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClock_Now(t *testing.T) {
	clk := NewSystemClock()

	before := time.Now().UnixMilli()
	now := clk.Now()
	after := time.Now().UnixMilli()

	assert.GreaterOrEqual(t, now, before)
	assert.LessOrEqual(t, now, after)
}

func TestMockClock_Advance(t *testing.T) {
	clk := NewMockClock(1000)
	assert.Equal(t, int64(1000), clk.Now())

	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, int64(1500), clk.Now())

	clk.Advance(2 * time.Second)
	assert.Equal(t, int64(3500), clk.Now())
}

func TestMockClock_Set(t *testing.T) {
	clk := NewMockClock(0)

	clk.Set(42000)
	assert.Equal(t, int64(42000), clk.Now())
}

func TestMockClock_ConcurrentReaders(t *testing.T) {
	clk := NewMockClock(0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			clk.Advance(time.Millisecond)
		}
	}()

	// Readers must never observe a torn or decreasing value
	var last int64
	for i := 0; i < 1000; i++ {
		now := clk.Now()
		assert.GreaterOrEqual(t, now, last)
		last = now
	}
	<-done

	assert.Equal(t, int64(1000), clk.Now())
}
