package queue

import (
	"sync"
)

var _ Queue[struct{}] = (*xArrayQueue[struct{}])(nil)

// xArrayQueue is a bounded circular-array FIFO holding exactly capacity
// items. A full queue rejects the offered item after running the
// rejection callback once; the queue keeps working for subsequent
// offers.
// Not lock-free on purpose. It backs the producer-driven processors
// whose delivery is serialized anyway, so a short critical section
// beats CAS retry loops there.
type xArrayQueue[E any] struct {
	lock     sync.Mutex
	items    []E
	rejectFn RejectionCallback[E]
	head     uint64
	tail     uint64
	count    uint64
	capacity uint64
}

func NewXArrayQueue[E any](capacity uint64, rejectFn ...RejectionCallback[E]) Queue[E] {
	if capacity < 1 {
		capacity = 1
	}
	q := &xArrayQueue[E]{
		items:    make([]E, capacity),
		capacity: capacity,
	}
	if len(rejectFn) > 0 && rejectFn[0] != nil {
		q.rejectFn = rejectFn[0]
	}
	return q
}

func (q *xArrayQueue[E]) Offer(item E) bool {
	q.lock.Lock()
	if q.count >= q.capacity {
		rejectFn := q.rejectFn
		q.lock.Unlock()
		if rejectFn != nil {
			rejectFn(item)
		}
		return false
	}
	q.items[q.tail%q.capacity] = item
	q.tail++
	q.count++
	q.lock.Unlock()
	return true
}

func (q *xArrayQueue[E]) Poll() (item E, ok bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.count == 0 {
		return *new(E), false
	}
	idx := q.head % q.capacity
	item = q.items[idx]
	q.items[idx] = *new(E)
	q.head++
	q.count--
	return item, true
}

func (q *xArrayQueue[E]) Len() int64 {
	q.lock.Lock()
	defer q.lock.Unlock()
	return int64(q.count)
}
