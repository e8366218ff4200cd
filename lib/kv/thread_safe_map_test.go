package kv

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThreadSafeMapSimpleCRUD(t *testing.T) {
	m := NewThreadSafeMap[string, int]()
	src := make(map[string]int, 64)
	for i := 0; i < 64; i++ {
		src[strconv.Itoa(i)] = i
	}
	m.Replace(src)

	require.Equal(t, 64, m.Len())
	require.Equal(t, 64, len(m.ListKeys()))
	require.Equal(t, 64, len(m.ListValues()))

	v, exists := m.Get("7")
	require.True(t, exists)
	require.Equal(t, 7, v)

	m.Delete("7")
	_, exists = m.Get("7")
	require.False(t, exists)
	require.Equal(t, 63, m.Len())

	m.AddOrUpdate("7", 70)
	v, exists = m.Get("7")
	require.True(t, exists)
	require.Equal(t, 70, v)

	filtered := m.ListKeys(func(key string) bool { return key == "7" || key == "8" })
	require.ElementsMatch(t, []string{"7", "8"}, filtered)

	picked := m.ListValues("1", "2")
	require.ElementsMatch(t, []int{1, 2}, picked)

	require.NoError(t, m.Purge())
	require.Equal(t, 0, m.Len())
}

type closableVal struct {
	closed *bool
}

func (c *closableVal) Close() error {
	*c.closed = true
	return nil
}

func TestThreadSafeMapPurgeClosesItems(t *testing.T) {
	m := NewThreadSafeMap[string, *closableVal]()
	closed := false
	m.AddOrUpdate("a", &closableVal{closed: &closed})
	require.NoError(t, m.Purge())
	require.True(t, closed)
}

func TestThreadSafeMapConcurrency(t *testing.T) {
	m := NewThreadSafeMap[int, int]()
	const gs, per = 8, 2000
	var wg sync.WaitGroup
	wg.Add(gs)
	for g := 0; g < gs; g++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				k := base*per + i
				m.AddOrUpdate(k, k)
				_, _ = m.Get(k)
				_ = m.ListKeys(func(key int) bool { return key == k })
			}
		}(g)
	}
	wg.Wait()
	require.Equal(t, gs*per, m.Len())
}
