package stream

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemandCounter_IncreaseAndDecrease(t *testing.T) {
	d := &demandCounter{}
	assert.Equal(t, int64(0), d.current())

	d.increase(3)
	assert.Equal(t, int64(3), d.current())
	d.decrease(2)
	assert.Equal(t, int64(1), d.current())
	d.decrease(5)
	assert.Equal(t, int64(0), d.current())
}

func TestDemandCounter_SaturatesAtUnbounded(t *testing.T) {
	d := &demandCounter{}
	d.increase(RequestUnbounded)
	assert.Equal(t, RequestUnbounded, d.current())

	// Unbounded stays unbounded under both directions.
	d.increase(10)
	assert.Equal(t, RequestUnbounded, d.current())
	d.decrease(10)
	assert.Equal(t, RequestUnbounded, d.current())
}

func TestDemandCounter_OverflowClampsToUnbounded(t *testing.T) {
	d := &demandCounter{}
	d.increase(RequestUnbounded - 1)
	d.increase(2)
	assert.Equal(t, RequestUnbounded, d.current())
}

func TestDemandCounter_ConcurrentRequests(t *testing.T) {
	d := &demandCounter{}
	const goroutines = 8
	const perG = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				d.increase(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(goroutines*perG), d.current())
}
