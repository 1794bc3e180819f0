package queue

import (
	"context"
	"io"
	"sync"
)

// CoalescingQueue holds at most one pending item per key. Pushing a key that
// is already pending replaces its value in place, so keys are served in the
// order they first arrived and each carries its latest value.
type CoalescingQueue[T any] struct {
	mu       sync.Mutex
	order    []string
	items    map[string]T
	capacity int
	notify   chan struct{}
	closed   bool
}

func NewCoalescingQueue[T any](capacity int) *CoalescingQueue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &CoalescingQueue[T]{
		items:    make(map[string]T),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

func (q *CoalescingQueue[T]) Push(key string, item T) EnqueueResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return EnqueueDropped
	}
	if _, pending := q.items[key]; pending {
		q.items[key] = item
		return EnqueueCoalesced
	}
	if len(q.order) >= q.capacity {
		return EnqueueDropped
	}
	q.items[key] = item
	q.order = append(q.order, key)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return EnqueueAccepted
}

// Pop blocks until an item is pending, ctx ends, or the queue is closed and
// drained (io.EOF).
func (q *CoalescingQueue[T]) Pop(ctx context.Context) (string, T, error) {
	for {
		q.mu.Lock()
		if len(q.order) > 0 {
			key := q.order[0]
			q.order[0] = ""
			q.order = q.order[1:]
			item := q.items[key]
			delete(q.items, key)
			q.mu.Unlock()
			return key, item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		var zero T
		if closed {
			return "", zero, io.EOF
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return "", zero, ctx.Err()
		}
	}
}

func (q *CoalescingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

func (q *CoalescingQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.notify)
	return nil
}
