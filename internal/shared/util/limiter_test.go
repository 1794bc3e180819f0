package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter(t *testing.T) {
	// 10 tokens per second, burst of 2
	l := NewLimiter(10, 2)

	assert.True(t, l.Allow(), "first token")
	assert.True(t, l.Allow(), "second token (burst)")
	assert.False(t, l.Allow(), "burst exhausted")

	time.Sleep(150 * time.Millisecond)
	assert.True(t, l.Allow(), "token refilled after wait")
}

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow())
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(100, 1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestLimiterRegistry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := NewLimiterRegistry(ctx, 100, 10, 100*time.Millisecond)

	l1 := reg.Get("1.1.1.1")
	l2 := reg.Get("2.2.2.2")
	assert.NotSame(t, l1, l2)
	assert.Same(t, l1, reg.Get("1.1.1.1"))
	assert.Equal(t, 2, reg.Len())

	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 20*time.Millisecond)
	assert.NotSame(t, l1, reg.Get("1.1.1.1"), "idle limiter is replaced")
}

func TestLimiterRegistry_AllowPerKey(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := NewLimiterRegistry(ctx, 0.001, 1, time.Minute)

	assert.True(t, reg.Allow("a"))
	assert.False(t, reg.Allow("a"))
	assert.True(t, reg.Allow("b"), "keys do not share buckets")
}
