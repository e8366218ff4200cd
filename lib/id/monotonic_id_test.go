package id

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonotonicNonZeroID(t *testing.T) {
	gen, err := MonotonicNonZeroID()
	assert.Nil(t, err)
	prev := uint64(0)
	for i := 0; i < 1000; i++ {
		n := gen.NumberUUID()
		assert.Greater(t, n, prev)
		prev = n
	}
	assert.NotEmpty(t, gen.StrUUID())
}

func TestMonotonicNonZeroIDConcurrency(t *testing.T) {
	gen, err := MonotonicNonZeroID()
	require.NoError(t, err)
	const gs, per = 8, 10000
	var wg sync.WaitGroup
	wg.Add(gs)
	idsC := make(chan uint64, gs*per)
	for i := 0; i < gs; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < per; j++ {
				idsC <- gen.NumberUUID()
			}
		}()
	}
	wg.Wait()
	close(idsC)
	seen := make(map[uint64]struct{}, gs*per)
	for id := range idsC {
		require.NotZero(t, id)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
