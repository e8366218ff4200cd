package ipc

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testBlockStrategyWakesUp(t *testing.T, bs BlockStrategy) {
	t.Helper()
	var flag atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	woken := atomic.Bool{}
	go func() {
		defer wg.Done()
		bs.WaitFor(flag.Load)
		woken.Store(true)
	}()

	time.Sleep(10 * time.Millisecond)
	require.False(t, woken.Load())

	flag.Store(true)
	bs.Done()
	wg.Wait()
	require.True(t, woken.Load())
}

func TestBlockStrategies(t *testing.T) {
	testcases := []struct {
		name string
		bs   BlockStrategy
	}{
		{"spin", NewXSpinBlockStrategy()},
		{"gosched", NewXGoSchedBlockStrategy()},
		{"sleep", NewXSleepBlockStrategy(50 * time.Microsecond)},
		{"cond", NewXCondBlockStrategy()},
		{"chan", NewXChanBlockStrategy()},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			testBlockStrategyWakesUp(t, tc.bs)
		})
	}
}

func TestCondBlockStrategyManyWaiters(t *testing.T) {
	bs := NewXCondBlockStrategy()
	var flag atomic.Bool
	var wg sync.WaitGroup
	const waiters = 8
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			bs.WaitFor(flag.Load)
		}()
	}
	time.Sleep(5 * time.Millisecond)
	flag.Store(true)
	bs.Done()
	wg.Wait()
}
