// Package queue provides the multi-producer FIFO used by the command dispatcher.
package queue

import (
	"sync/atomic"
)

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// LockFree is an unbounded Michael-Scott queue. Enqueue never blocks, which
// lets callers submit requests from any goroutine while a single consumer drains
// the queue in submission order.
//
// The zero value is not usable; create instances with NewLockFree.
type LockFree[T any] struct {
	head   atomic.Pointer[node[T]]
	tail   atomic.Pointer[node[T]]
	length atomic.Int32
}

// NewLockFree creates an empty queue.
func NewLockFree[T any]() *LockFree[T] {
	q := &LockFree[T]{}
	q.Reset()

	return q
}

// Reset drops every queued item. It must not race with Enqueue or Dequeue.
func (q *LockFree[T]) Reset() {
	n := &node[T]{}
	q.head.Store(n)
	q.tail.Store(n)
	q.length.Store(0)
}

// Enqueue adds an item to the tail of the queue.
func (q *LockFree[T]) Enqueue(item T) {
	n := &node[T]{value: item}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		// Are tail and next consistent?
		if tail != q.tail.Load() {
			continue
		}

		if next != nil {
			// tail was not pointing to the last node, swing it forward.
			q.tail.CompareAndSwap(tail, next)
			continue
		}

		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			q.length.Add(1)

			return
		}
	}
}

// Dequeue removes and returns the item at the head of the queue.
// ok is false when the queue is empty.
func (q *LockFree[T]) Dequeue() (item T, ok bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()

		if head != q.head.Load() {
			continue
		}

		if head == tail {
			if next == nil {
				return item, false
			}
			// tail is falling behind, try to advance it.
			q.tail.CompareAndSwap(tail, next)

			continue
		}

		// Read value before CAS, otherwise another dequeue might recycle the node.
		value := next.value
		if q.head.CompareAndSwap(head, next) {
			q.length.Add(-1)

			return value, true
		}
	}
}

// Peek returns the item at the head of the queue without removing it.
func (q *LockFree[T]) Peek() (item T, ok bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()

		if head != q.head.Load() {
			continue
		}

		if head != tail {
			return next.value, true
		}

		if next == nil {
			return item, false
		}
		q.tail.CompareAndSwap(tail, next)
	}
}

// IsEmpty returns true if the queue is empty, false otherwise.
func (q *LockFree[T]) IsEmpty() bool {
	return q.length.Load() == 0
}

// Length returns the number of items in the queue.
func (q *LockFree[T]) Length() int {
	return int(q.length.Load())
}
