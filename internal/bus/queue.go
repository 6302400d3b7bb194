package bus

import (
	"sync"
	"time"
)

// Queue is an unbounded FIFO message queue with one logical consumer and
// any number of producers.
//
// Send never blocks and only fails after Close. Receive blocks the consumer
// up to a timeout so it can run periodic housekeeping even with no traffic.
// Ordering is strict FIFO: the consumer observes messages in an order
// consistent with a linearization of the Send calls.
//
// Thread Safety: all methods are safe for concurrent use, though only one
// goroutine should consume.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	// wake is a 1-buffered signal. Producers post to it without blocking;
	// the consumer re-checks the slice after every wake, so a coalesced
	// signal can never lose an item.
	wake chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		wake: make(chan struct{}, 1),
	}
}

// Send appends v to the queue. It never blocks. Returns false only when the
// queue has been closed.
func (q *Queue[T]) Send(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Receive blocks up to timeout for the next message.
//
// Returns (msg, true) when a message is available. Returns (zero, false) on
// timeout, or immediately once the queue is closed and drained; use Closed
// to tell the two apart.
func (q *Queue[T]) Receive(timeout time.Duration) (T, bool) {
	var zero T
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			if len(q.items) == 0 {
				q.items = nil
			}
			q.mu.Unlock()
			return v, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return zero, false
		}

		select {
		case <-q.wake:
		case <-timer.C:
			return zero, false
		}
	}
}

// TryReceive pops the next message without waiting. Used by shutdown paths
// to drain whatever is immediately available.
func (q *Queue[T]) TryReceive() (T, bool) {
	var zero T
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return v, true
}

// Len reports how many messages are waiting.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed and wakes the consumer. Messages already
// queued remain receivable; further Sends are rejected.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
