package id

import (
	"strconv"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// monotonicNonZeroID is an ID generator.
// Only increase, if it overflows, it will be reset to 1.
// Occupies a whole cache line so the hot counter is never
// broken by neighboring data (false sharing).
type monotonicNonZeroID struct {
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte // padding for CPU cache line, avoid false sharing
	val uint64                                               // space waste to exchange for performance
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte // padding for CPU cache line, avoid false sharing
}

func (id *monotonicNonZeroID) next() uint64 {
	var v uint64
	if v = atomic.AddUint64(&id.val, 1); v == 0 {
		v = atomic.AddUint64(&id.val, 1)
	}
	return v
}

// MonotonicNonZeroID builds a process-local, never-zero, increasing uuid
// generator. Zero is reserved as the "unassigned" id everywhere.
func MonotonicNonZeroID() (UUIDGen, error) {
	src := &monotonicNonZeroID{val: 0}
	id := &uuidDelegator{}
	id.number = func() uint64 {
		return src.next()
	}
	id.str = func() string {
		return strconv.FormatUint(src.next(), 10)
	}
	return id, nil
}
