package queue

import (
	"sync/atomic"

	"github.com/benz9527/xflux/lib/bits"
)

var (
	_ RingBufferEntry[struct{}] = (*xRingBufferEntry[struct{}])(nil)
	_ RingBuffer[struct{}]      = (*xRingBuffer[struct{}])(nil)
)

type xRingBufferEntry[T any] struct {
	// Atomically stored after the value write, it is the
	// publish barrier (release on Store, acquire on GetCursor).
	cursor uint64
	value  T
}

func (e *xRingBufferEntry[T]) GetValue() T {
	return e.value
}

func (e *xRingBufferEntry[T]) GetCursor() uint64 {
	return atomic.LoadUint64(&e.cursor)
}

func (e *xRingBufferEntry[T]) Store(cursor uint64, value T) {
	e.value = value
	atomic.StoreUint64(&e.cursor, cursor)
}

type xRingBuffer[T any] struct {
	capacityMask uint64
	capacity     uint64
	entries      []xRingBufferEntry[T]
}

// NewXRingBuffer rounds capacity up to a power of 2 so slot lookup is a
// single mask instead of a modulo.
func NewXRingBuffer[T any](capacity uint64) RingBuffer[T] {
	capacity = bits.RoundupPowOf2ByCeil(capacity)
	if capacity < 2 {
		capacity = 2
	}
	return &xRingBuffer[T]{
		capacity:     capacity,
		capacityMask: capacity - 1,
		entries:      make([]xRingBufferEntry[T], capacity),
	}
}

func (rb *xRingBuffer[T]) Capacity() uint64 {
	return rb.capacity
}

func (rb *xRingBuffer[T]) LoadEntryByCursor(cursor uint64) RingBufferEntry[T] {
	return &rb.entries[cursor&rb.capacityMask]
}
