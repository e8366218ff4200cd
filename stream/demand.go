package stream

import (
	"math"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// RequestUnbounded is the saturation sentinel for demand. A subscriber
// requesting it (or overflowing into it) is treated as uncapped.
const RequestUnbounded = int64(math.MaxInt64)

// demandCounter is the per-subscriber account of requested-but-not-yet
// delivered values. Producers call increase from arbitrary goroutines,
// the delivery side calls decrease; both sides are plain atomics.
// The counter lives alone on its cache line, it sits next to other
// subscribers' counters in registries and is hammered from two sides.
type demandCounter struct {
	_ [cacheLinePadSize - unsafe.Sizeof(*new(int64))]byte
	n int64
	_ [cacheLinePadSize - unsafe.Sizeof(*new(int64))]byte
}

// increase adds n (n > 0) saturating at RequestUnbounded.
// Returns the demand before the addition.
func (d *demandCounter) increase(n int64) int64 {
	for {
		prev := atomic.LoadInt64(&d.n)
		if prev == RequestUnbounded {
			return prev
		}
		next := prev + n
		if next < 0 { // overflow
			next = RequestUnbounded
		}
		if atomic.CompareAndSwapInt64(&d.n, prev, next) {
			return prev
		}
	}
}

// decrease subtracts n after successful deliveries. Unbounded demand
// stays unbounded. Never drops below zero.
func (d *demandCounter) decrease(n int64) int64 {
	for {
		prev := atomic.LoadInt64(&d.n)
		if prev == RequestUnbounded {
			return prev
		}
		next := prev - n
		if next < 0 {
			next = 0
		}
		if atomic.CompareAndSwapInt64(&d.n, prev, next) {
			return next
		}
	}
}

func (d *demandCounter) current() int64 {
	return atomic.LoadInt64(&d.n)
}
