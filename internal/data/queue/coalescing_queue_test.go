package queue

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalescingQueue_LatestWinsInArrivalOrder(t *testing.T) {
	q := NewCoalescingQueue[int](8)

	assert.Equal(t, EnqueueAccepted, q.Push("a.ts", 1))
	assert.Equal(t, EnqueueAccepted, q.Push("b.ts", 1))
	assert.Equal(t, EnqueueCoalesced, q.Push("a.ts", 2))
	assert.Equal(t, EnqueueCoalesced, q.Push("a.ts", 3))
	assert.Equal(t, 2, q.Len())

	ctx := context.Background()
	key, v, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a.ts", key)
	assert.Equal(t, 3, v)

	key, v, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b.ts", key)
	assert.Equal(t, 1, v)

	assert.Equal(t, EnqueueAccepted, q.Push("a.ts", 4), "a popped key is accepted again")
}

func TestCoalescingQueue_Capacity(t *testing.T) {
	q := NewCoalescingQueue[int](1)
	assert.Equal(t, EnqueueAccepted, q.Push("a.ts", 1))
	assert.Equal(t, EnqueueDropped, q.Push("b.ts", 1))
	assert.Equal(t, EnqueueCoalesced, q.Push("a.ts", 2), "pending keys still coalesce when full")
}

func TestCoalescingQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewCoalescingQueue[string](4)
	got := make(chan string, 1)
	go func() {
		key, _, err := q.Pop(context.Background())
		if err == nil {
			got <- key
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push("late.ts", "x")

	select {
	case key := <-got:
		assert.Equal(t, "late.ts", key)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake on Push")
	}
}

func TestCoalescingQueue_CancelAndClose(t *testing.T) {
	q := NewCoalescingQueue[int](4)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	q.Push("a.ts", 1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.Equal(t, EnqueueDropped, q.Push("b.ts", 1))

	key, _, err := q.Pop(context.Background())
	require.NoError(t, err, "pending items drain after close")
	assert.Equal(t, "a.ts", key)

	_, _, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
