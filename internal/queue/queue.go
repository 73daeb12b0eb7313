// Package queue provides a generic blocking multi-producer/multi-consumer
// FIFO queue that can be closed to release every waiting receiver.
//
// The same type carries both directions of the encoder pipeline: tasks from
// the orchestrator to workers and notifications from workers back.
package queue

import "sync"

// Status is the outcome of a receive operation
type Status int

const (
	// StatusOK means at least one item was returned
	StatusOK Status = iota
	// StatusEmpty means a non-waiting receive found nothing queued
	StatusEmpty
	// StatusClosed means the queue has been closed (and, for ReceiveAll, drained)
	StatusClosed
)

// String returns a string representation of the status
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Queue is an unbounded FIFO guarded by one mutex and one condition variable.
// The zero value is not usable; create queues with New.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

// New creates an open, empty queue
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send appends item and wakes one waiting receiver. It never blocks beyond the
// internal lock. Send returns false, dropping the item, once the queue is closed.
func (q *Queue[T]) Send(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return true
}

// Receive removes the oldest item. With wait set it blocks until an item
// arrives or the queue is closed. A closed queue reports StatusClosed even if
// items are still pending, so no consumer picks up new work after Close;
// pending items remain reachable through ReceiveAll.
func (q *Queue[T]) Receive(wait bool) (T, Status) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	for {
		if q.closed {
			return zero, StatusClosed
		}
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			return item, StatusOK
		}
		if !wait {
			return zero, StatusEmpty
		}
		q.cond.Wait()
	}
}

// ReceiveAll removes every queued item in arrival order within a single
// critical section. Items pending at Close are still returned; StatusClosed is
// reported only once a closed queue has been drained.
func (q *Queue[T]) ReceiveAll(wait bool) ([]T, Status) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.items) > 0 {
			items := q.items
			q.items = nil
			return items, StatusOK
		}
		if q.closed {
			return nil, StatusClosed
		}
		if !wait {
			return nil, StatusEmpty
		}
		q.cond.Wait()
	}
}

// Close marks the queue closed and wakes all blocked receivers. It is
// idempotent and one-way.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Closed reports whether Close has been called
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of pending items
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
