package router

import (
	"sync"
)

// Queue is an unbounded, thread-safe FIFO. It is backed by a ring that
// doubles when full, so Send never blocks and never drops.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   []T
	head   int // next read
	count  int
	closed bool

	// Stats
	enqueued  int64
	dequeued  int64
	highWater int
	grows     int
}

// NewQueue creates a queue with the given initial capacity.
func NewQueue[T any](initialCapacity int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	q := &Queue[T]{ring: make([]T, initialCapacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send appends item. Returns false if the queue is closed.
func (q *Queue[T]) Send(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.count == len(q.ring) {
		q.grow()
	}

	q.ring[(q.head+q.count)%len(q.ring)] = item
	q.count++
	q.enqueued++
	if q.count > q.highWater {
		q.highWater = q.count
	}

	q.cond.Signal()
	return true
}

// Receive blocks until an item is available or the queue is closed and
// drained, in which case ok is false.
func (q *Queue[T]) Receive() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	return q.pop()
}

// TryReceive returns the next item without blocking.
func (q *Queue[T]) TryReceive() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pop()
}

// Close stops accepting items and wakes all receivers. Items already queued
// can still be received.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:     q.count,
		Capacity:  len(q.ring),
		Enqueued:  q.enqueued,
		Dequeued:  q.dequeued,
		HighWater: q.highWater,
		Grows:     q.grows,
	}
}

// QueueStats contains queue statistics.
type QueueStats struct {
	Count     int
	Capacity  int
	Enqueued  int64
	Dequeued  int64
	HighWater int
	Grows     int
}

// pop removes the head. Must be called with lock held.
func (q *Queue[T]) pop() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}

	item := q.ring[q.head]
	q.ring[q.head] = zero // Clear reference for GC
	q.head = (q.head + 1) % len(q.ring)
	q.count--
	q.dequeued++
	return item, true
}

// grow doubles the ring, unwrapping it. Must be called with lock held.
func (q *Queue[T]) grow() {
	next := make([]T, len(q.ring)*2)
	n := copy(next, q.ring[q.head:])
	copy(next[n:], q.ring[:q.head])

	q.ring = next
	q.head = 0
	q.grows++
}
