package queue

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// RejectionCallback runs exactly once for every item a bounded queue
// refuses, so the caller can release resources tied to the item.
type RejectionCallback[E any] func(item E)

// Queue is a FIFO buffer. Offer reports false when the item is rejected
// by a bounded implementation; unbounded implementations never reject.
type Queue[E any] interface {
	Offer(item E) bool
	Poll() (item E, ok bool)
	Len() int64
}

// RingBufferEntry is a single reusable slot. The entry's cursor doubles
// as the publish barrier: a reader owns sequence s only once
// GetCursor() == s.
type RingBufferEntry[T any] interface {
	GetValue() T
	GetCursor() uint64
	Store(cursor uint64, value T)
}

// RingBuffer is a fixed, power-of-two sized slot array indexed by
// sequence masking. Slots are reused in place, never freed.
type RingBuffer[T any] interface {
	Capacity() uint64
	LoadEntryByCursor(cursor uint64) RingBufferEntry[T]
}

// RingBufferCursor is a cache-line isolated monotonic sequence counter.
// Next starts handing out 1; 0 is reserved for "nothing published yet".
type RingBufferCursor interface {
	Next() uint64
	NextN(n uint64) uint64
	Load() uint64
	CompareAndSwap(old, new uint64) bool
}
