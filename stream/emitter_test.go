package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterProcessor_FirstSubscriberGetsBacklog(t *testing.T) {
	p := NewEmitterProcessor[int](WithBufferCapacity[int](10))
	p.OnNext(1)
	p.OnNext(2)
	p.OnNext(3)

	first := newRecordingSubscriber[int](RequestUnbounded)
	require.NoError(t, p.Subscribe(first))
	assert.Equal(t, []int{1, 2, 3}, first.snapshotValues())

	second := newRecordingSubscriber[int](RequestUnbounded)
	require.NoError(t, p.Subscribe(second))
	// No backlog for later subscribers, only live values.
	assert.Empty(t, second.snapshotValues())

	p.OnNext(4)
	assert.Equal(t, []int{1, 2, 3, 4}, first.snapshotValues())
	assert.Equal(t, []int{4}, second.snapshotValues())
}

func TestEmitterProcessor_FullBufferParksProducer(t *testing.T) {
	p := NewEmitterProcessor[int](WithBufferCapacity[int](2))
	p.OnNext(1)
	p.OnNext(2)

	released := make(chan struct{})
	go func() {
		p.OnNext(3)
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("push into a full buffer should park the producer")
	case <-time.After(50 * time.Millisecond):
	}

	s := newRecordingSubscriber[int](RequestUnbounded)
	require.NoError(t, p.Subscribe(s))

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("producer was not released by the draining subscriber")
	}
	require.Eventually(t, func() bool {
		return len(s.snapshotValues()) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{1, 2, 3}, s.snapshotValues())
}

func TestEmitterProcessor_TryNextRejectsWhenFull(t *testing.T) {
	p := NewEmitterProcessor[int](WithBufferCapacity[int](1))
	sink, err := p.AsSink()
	require.NoError(t, err)

	require.NoError(t, sink.TryNext(1))
	require.ErrorIs(t, sink.TryNext(2), ErrQueueOverflow)
}

func TestEmitterProcessor_PerSubscriberDemand(t *testing.T) {
	p := NewEmitterProcessor[int](WithBufferCapacity[int](10))
	eager := newRecordingSubscriber[int](RequestUnbounded)
	slow := newRecordingSubscriber[int](0)
	require.NoError(t, p.Subscribe(eager))
	require.NoError(t, p.Subscribe(slow))

	p.OnNext(1)
	p.OnNext(2)
	assert.Equal(t, []int{1, 2}, eager.snapshotValues())
	assert.Empty(t, slow.snapshotValues())

	slow.subscription().Request(1)
	assert.Equal(t, []int{1}, slow.snapshotValues())
	slow.subscription().Request(RequestUnbounded)
	assert.Equal(t, []int{1, 2}, slow.snapshotValues())
}

func TestEmitterProcessor_AutoCancelOnLastCancel(t *testing.T) {
	p := NewEmitterProcessor[int]()
	s := newRecordingSubscriber[int](RequestUnbounded)
	require.NoError(t, p.Subscribe(s))
	s.subscription().Cancel()

	require.True(t, p.IsTerminated())
	late := newRecordingSubscriber[int](RequestUnbounded)
	require.ErrorIs(t, p.Subscribe(late), ErrTerminated)
}

func TestEmitterProcessor_KeepAliveWithoutAutoCancel(t *testing.T) {
	p := NewEmitterProcessor[int](WithAutoCancel[int](false))
	s := newRecordingSubscriber[int](RequestUnbounded)
	require.NoError(t, p.Subscribe(s))
	s.subscription().Cancel()
	require.False(t, p.IsTerminated())

	next := newRecordingSubscriber[int](RequestUnbounded)
	require.NoError(t, p.Subscribe(next))
	p.OnNext(9)
	assert.Equal(t, []int{9}, next.snapshotValues())
}

func TestEmitterProcessor_TerminalAfterRemainder(t *testing.T) {
	p := NewEmitterProcessor[int](WithBufferCapacity[int](10))
	s := newRecordingSubscriber[int](0)
	require.NoError(t, p.Subscribe(s))

	p.OnNext(1)
	p.OnComplete()
	assert.Equal(t, 0, s.terminalCount())

	s.subscription().Request(RequestUnbounded)
	assert.Equal(t, []int{1}, s.snapshotValues())
	assert.Equal(t, 1, s.completeCount())
	assert.Equal(t, 0, p.SubscriberCount())
}

func TestEmitterProcessor_ErrorReachesAllSubscribers(t *testing.T) {
	p := NewEmitterProcessor[int](WithBufferCapacity[int](10))
	boom := errors.New("boom")
	s1 := newRecordingSubscriber[int](RequestUnbounded)
	s2 := newRecordingSubscriber[int](RequestUnbounded)
	require.NoError(t, p.Subscribe(s1))
	require.NoError(t, p.Subscribe(s2))

	p.OnError(boom)
	require.ErrorIs(t, s1.firstError(), boom)
	require.ErrorIs(t, s2.firstError(), boom)
	assert.Equal(t, 1, s1.terminalCount())
	assert.Equal(t, 1, s2.terminalCount())
}
