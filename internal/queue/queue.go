package queue

import (
	"sync"
)

// Queue implements a thread-safe generic FIFO queue.
// Enqueue never blocks (the queue is unbounded); Dequeue blocks until an
// item is available or the queue is closed and drained.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

// New creates a new empty queue
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Len returns the number of items currently in the queue
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Enqueue appends a value to the back of the queue.
// Returns false if the queue has been closed.
func (q *Queue[T]) Enqueue(value T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, value)
	q.cond.Signal()
	return true
}

// Dequeue removes and returns the item at the front of the queue, blocking
// while the queue is empty. After Close, remaining items are still drained
// in order; once empty it returns the zero value and false.
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}

	value := q.items[0]
	var zero T
	q.items[0] = zero // avoid memory leak
	q.items = q.items[1:]
	return value, true
}

// Close marks the queue closed and wakes all blocked consumers.
// Safe to call more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
