package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXArrayQueueFIFOAndWrap(t *testing.T) {
	q := NewXArrayQueue[int](4)
	for i := 0; i < 4; i++ {
		require.True(t, q.Offer(i))
	}
	require.Equal(t, int64(4), q.Len())

	v, ok := q.Poll()
	require.True(t, ok)
	require.Equal(t, 0, v)

	// reuse the freed slot
	require.True(t, q.Offer(4))
	for want := 1; want <= 4; want++ {
		v, ok = q.Poll()
		require.True(t, ok)
		require.Equal(t, want, v)
	}
	_, ok = q.Poll()
	require.False(t, ok)
}

func TestXArrayQueueRejection(t *testing.T) {
	rejected := make([]int, 0, 2)
	q := NewXArrayQueue[int](2, func(item int) {
		rejected = append(rejected, item)
	})
	require.True(t, q.Offer(1))
	require.True(t, q.Offer(2))

	// full, callback runs exactly once per rejected item
	require.False(t, q.Offer(3))
	require.False(t, q.Offer(4))
	require.Equal(t, []int{3, 4}, rejected)

	// rejection is not sticky
	_, _ = q.Poll()
	require.True(t, q.Offer(5))
}

func TestXArrayQueueExactCapacity(t *testing.T) {
	q := NewXArrayQueue[int](3)
	for i := 0; i < 3; i++ {
		require.True(t, q.Offer(i))
	}
	require.False(t, q.Offer(3))

	q = NewXArrayQueue[int](0)
	require.True(t, q.Offer(1))
	require.False(t, q.Offer(2))
}
