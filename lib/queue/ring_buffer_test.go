package queue

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXRingBufferCapacityRoundup(t *testing.T) {
	rb := NewXRingBuffer[int](10)
	require.Equal(t, uint64(16), rb.Capacity())

	rb = NewXRingBuffer[int](0)
	require.Equal(t, uint64(2), rb.Capacity())
}

func TestXRingBufferPublishBarrier(t *testing.T) {
	rb := NewXRingBuffer[string](4)
	e := rb.LoadEntryByCursor(1)
	require.Equal(t, uint64(0), e.GetCursor()) // unpublished

	e.Store(1, "a")
	require.Equal(t, uint64(1), e.GetCursor())
	require.Equal(t, "a", e.GetValue())

	// Same slot, next lap.
	e2 := rb.LoadEntryByCursor(5)
	require.Equal(t, e, e2)
	e2.Store(5, "b")
	require.Equal(t, uint64(5), e.GetCursor())
	require.Equal(t, "b", e.GetValue())
}

func TestXRingBufferSingleProducerSingleConsumer(t *testing.T) {
	const capacity, total = 8, 10000
	rb := NewXRingBuffer[uint64](capacity)
	wCursor := NewXRingBufferCursor()
	var consumed uint64
	var wg sync.WaitGroup
	wg.Add(2)

	go func() { // producer
		defer wg.Done()
		for i := 0; i < total; i++ {
			seq := wCursor.Next()
			// wrap guard against the consumer position
			for seq > atomic.LoadUint64(&consumed)+capacity {
			}
			rb.LoadEntryByCursor(seq).Store(seq, seq)
		}
	}()

	go func() { // consumer
		defer wg.Done()
		for next := uint64(1); next <= total; {
			e := rb.LoadEntryByCursor(next)
			if e.GetCursor() != next {
				continue
			}
			if e.GetValue() != next {
				t.Errorf("slot %d holds %d", next, e.GetValue())
				return
			}
			atomic.StoreUint64(&consumed, next)
			next++
		}
	}()
	wg.Wait()
}
