package queue

import (
	"sync/atomic"
)

var _ Queue[struct{}] = (*xLinkedQueue[struct{}])(nil)

type linkedNode[E any] struct {
	next  atomic.Pointer[linkedNode[E]]
	value E
}

// xLinkedQueue is an unbounded Michael-Scott lock-free FIFO.
// Offer never rejects; memory is the only limit.
// References:
// https://www.cs.rochester.edu/~scott/papers/1996_PODC_queues.pdf
type xLinkedQueue[E any] struct {
	head atomic.Pointer[linkedNode[E]]
	tail atomic.Pointer[linkedNode[E]]
	size atomic.Int64
}

func NewXLinkedQueue[E any]() Queue[E] {
	q := &xLinkedQueue[E]{}
	dummy := &linkedNode[E]{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

func (q *xLinkedQueue[E]) Offer(item E) bool {
	node := &linkedNode[E]{value: item}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next != nil {
			// Tail is lagging, help it forward.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, node) {
			q.tail.CompareAndSwap(tail, node)
			q.size.Add(1)
			return true
		}
	}
}

func (q *xLinkedQueue[E]) Poll() (item E, ok bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if next == nil {
			// Empty, the dummy node is the only one.
			return *new(E), false
		}
		if head == tail {
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		value := next.value
		if q.head.CompareAndSwap(head, next) {
			q.size.Add(-1)
			next.value = *new(E) // release the reference for GC
			return value, true
		}
	}
}

func (q *xLinkedQueue[E]) Len() int64 {
	return q.size.Load()
}
