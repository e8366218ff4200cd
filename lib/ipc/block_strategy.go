package ipc

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benz9527/xflux/lib/infra"
)

var (
	_ BlockStrategy = (*xSpinBlockStrategy)(nil)
	_ BlockStrategy = (*xGoSchedBlockStrategy)(nil)
	_ BlockStrategy = (*xSleepBlockStrategy)(nil)
	_ BlockStrategy = (*xCondBlockStrategy)(nil)
	_ BlockStrategy = (*xChanBlockStrategy)(nil)
)

// xSpinBlockStrategy burns the CPU with PAUSE loops. Lowest latency,
// only acceptable when a dedicated core is available.
type xSpinBlockStrategy struct{}

func NewXSpinBlockStrategy() BlockStrategy {
	return &xSpinBlockStrategy{}
}

func (bs *xSpinBlockStrategy) WaitFor(eqFn func() bool) {
	for !eqFn() {
		infra.ProcYield(30)
	}
}

func (bs *xSpinBlockStrategy) Done() {}

// xGoSchedBlockStrategy spins but hands the P back to the scheduler on
// every failed probe.
type xGoSchedBlockStrategy struct{}

func NewXGoSchedBlockStrategy() BlockStrategy {
	return &xGoSchedBlockStrategy{}
}

func (bs *xGoSchedBlockStrategy) WaitFor(eqFn func() bool) {
	for !eqFn() {
		runtime.Gosched()
	}
}

func (bs *xGoSchedBlockStrategy) Done() {}

type xSleepBlockStrategy struct {
	interval time.Duration
}

func NewXSleepBlockStrategy(interval time.Duration) BlockStrategy {
	if interval <= 0 {
		interval = 20 * time.Microsecond
	}
	return &xSleepBlockStrategy{interval: interval}
}

func (bs *xSleepBlockStrategy) WaitFor(eqFn func() bool) {
	for !eqFn() {
		time.Sleep(bs.interval)
	}
}

func (bs *xSleepBlockStrategy) Done() {}

// xCondBlockStrategy parks the consumer on a condition variable.
// The producer must call Done after every state change, otherwise the
// consumer stays parked.
type xCondBlockStrategy struct {
	cond *sync.Cond
	lock sync.Mutex
}

func NewXCondBlockStrategy() BlockStrategy {
	bs := &xCondBlockStrategy{}
	bs.cond = sync.NewCond(&bs.lock)
	return bs
}

func (bs *xCondBlockStrategy) WaitFor(eqFn func() bool) {
	bs.lock.Lock()
	defer bs.lock.Unlock()
	for !eqFn() {
		bs.cond.Wait()
	}
}

func (bs *xCondBlockStrategy) Done() {
	bs.lock.Lock()
	bs.cond.Broadcast()
	bs.lock.Unlock()
}

// xChanBlockStrategy parks on a 1-slot channel with a bounded nap as a
// missed-wakeup safety net.
type xChanBlockStrategy struct {
	wakeC   ClosableChannel[struct{}]
	parking atomic.Bool
}

func NewXChanBlockStrategy() BlockStrategy {
	return &xChanBlockStrategy{
		wakeC: NewSafeClosableChannel[struct{}](1),
	}
}

func (bs *xChanBlockStrategy) WaitFor(eqFn func() bool) {
	for !eqFn() {
		bs.parking.Store(true)
		select {
		case <-bs.wakeC.Wait():
		case <-time.After(200 * time.Microsecond):
		}
		bs.parking.Store(false)
	}
}

func (bs *xChanBlockStrategy) Done() {
	if bs.parking.Load() {
		// Non-blocking nudge; a missed one is caught by the nap.
		_ = bs.wakeC.Send(struct{}{}, true)
	}
}
