package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_TakenExactlyOnce(t *testing.T) {
	p := NewUnicastProcessor[int]()
	_, err := p.AsSink()
	require.NoError(t, err)
	_, err = p.AsSink()
	require.ErrorIs(t, err, ErrSinkTaken)
}

func TestSink_DirectPushAfterSinkIsDropped(t *testing.T) {
	var dropped []int
	p := NewUnicastProcessor[int](WithDiscardCallback[int](func(v int) {
		dropped = append(dropped, v)
	}))
	sink, err := p.AsSink()
	require.NoError(t, err)

	// Mixing the delivery protocol with an obtained sink is misuse;
	// the value is reported and dropped, nothing corrupts.
	p.OnNext(42)
	assert.Equal(t, []int{42}, dropped)

	require.NoError(t, sink.Next(1))
	s := newRecordingSubscriber[int](RequestUnbounded)
	require.NoError(t, p.Subscribe(s))
	assert.Equal(t, []int{1}, s.snapshotValues())
}

func TestSink_OverflowErrorStrategy(t *testing.T) {
	p := NewUnicastProcessor[int](WithBufferCapacity[int](1))
	sink, err := p.AsSink(WithSinkOverflowStrategy[int](SinkOverflowError))
	require.NoError(t, err)

	require.NoError(t, sink.Next(1))
	require.ErrorIs(t, sink.Next(2), ErrSinkOverflow)
}

func TestSink_OverflowIgnoreStrategy(t *testing.T) {
	var dropped []int
	p := NewUnicastProcessor[int](
		WithBufferCapacity[int](1),
		WithDiscardCallback[int](func(v int) { dropped = append(dropped, v) }),
	)
	sink, err := p.AsSink(WithSinkOverflowStrategy[int](SinkOverflowIgnore))
	require.NoError(t, err)

	require.NoError(t, sink.Next(1))
	require.NoError(t, sink.Next(2))
	assert.Equal(t, []int{2}, dropped)
}

func TestSink_OverflowDropStrategyCallback(t *testing.T) {
	var notified []int
	p := NewUnicastProcessor[int](WithBufferCapacity[int](1))
	sink, err := p.AsSink(
		WithSinkOverflowStrategy[int](SinkOverflowDrop),
		WithSinkDropCallback[int](func(v int) { notified = append(notified, v) }),
	)
	require.NoError(t, err)

	require.NoError(t, sink.Next(1))
	require.NoError(t, sink.Next(2))
	require.NoError(t, sink.Next(3))
	assert.Equal(t, []int{2, 3}, notified)
}

func TestSink_OverflowBufferStrategyRedrains(t *testing.T) {
	p := NewUnicastProcessor[int](WithBufferCapacity[int](2))
	sink, err := p.AsSink(WithSinkOverflowStrategy[int](SinkOverflowBuffer))
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, sink.Next(i))
	}

	// Draining the processor queue lets the parked values through on
	// the next push.
	s := newRecordingSubscriber[int](RequestUnbounded)
	require.NoError(t, p.Subscribe(s))
	require.NoError(t, sink.Next(6))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, s.snapshotValues())
}

func TestSink_TerminalSignals(t *testing.T) {
	p := NewUnicastProcessor[int]()
	sink, err := p.AsSink()
	require.NoError(t, err)

	s := newRecordingSubscriber[int](RequestUnbounded)
	require.NoError(t, p.Subscribe(s))
	require.NoError(t, sink.Next(1))
	sink.Complete()

	assert.Equal(t, []int{1}, s.snapshotValues())
	assert.Equal(t, 1, s.completeCount())
	require.ErrorIs(t, sink.Next(2), ErrTerminated)
}
