package queue

import (
	"sync/atomic"
	"unsafe"
)

var _ RingBufferCursor = (*rbCursor)(nil)

// rbCursor occupies a whole cache line. The counter is the single
// hottest word in the ring buffer; sharing its line with anything else
// turns every claim into an RFO storm between cores.
type rbCursor struct {
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte // padding for CPU cache line, avoid false sharing
	val uint64                                               // space waste to exchange for performance
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte // padding for CPU cache line, avoid false sharing
}

func NewXRingBufferCursor() RingBufferCursor {
	return &rbCursor{}
}

func (c *rbCursor) Next() uint64 {
	return atomic.AddUint64(&c.val, 1)
}

func (c *rbCursor) NextN(n uint64) uint64 {
	return atomic.AddUint64(&c.val, n)
}

func (c *rbCursor) Load() uint64 {
	return atomic.LoadUint64(&c.val)
}

func (c *rbCursor) CompareAndSwap(old, new uint64) bool {
	return atomic.CompareAndSwapUint64(&c.val, old, new)
}
