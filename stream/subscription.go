package stream

import (
	"sync/atomic"

	"github.com/benz9527/xflux/lib/id"
)

// subscriptionBase carries the registration state every processor
// variant shares: identity, demand account, cancel flag and the
// exactly-once terminal latch. The concrete subscription types embed
// it and add their own Request/Cancel hooks.
type subscriptionBase[T any] struct {
	actual    Subscriber[T]
	id        uint64
	demand    demandCounter
	cancelled atomic.Bool
	// done latches on the first terminal delivery; it is what makes
	// "at most one terminal, no value after it" hold per subscriber.
	done atomic.Bool
}

func newSubscriptionBase[T any](gen id.UUIDGen, actual Subscriber[T]) subscriptionBase[T] {
	return subscriptionBase[T]{
		actual: actual,
		id:     gen.NumberUUID(),
	}
}

func (s *subscriptionBase[T]) isActive() bool {
	return !s.cancelled.Load() && !s.done.Load()
}

// deliverValue hands one value to the subscriber. The caller must have
// secured demand beforehand; this only guards the terminal/cancel
// latches.
func (s *subscriptionBase[T]) deliverValue(v T) bool {
	if !s.isActive() {
		return false
	}
	s.actual.OnNext(v)
	return true
}

func (s *subscriptionBase[T]) deliverError(err error) bool {
	if s.cancelled.Load() || !s.done.CompareAndSwap(false, true) {
		return false
	}
	s.actual.OnError(err)
	return true
}

func (s *subscriptionBase[T]) deliverComplete() bool {
	if s.cancelled.Load() || !s.done.CompareAndSwap(false, true) {
		return false
	}
	s.actual.OnComplete()
	return true
}

// validateRequest applies the reactive-stream demand rule: requests
// must be positive. A violation is fatal to this subscriber only.
func (s *subscriptionBase[T]) validateRequest(n int64) bool {
	if n > 0 {
		return true
	}
	s.deliverError(ErrBadRequest)
	s.cancelled.Store(true)
	return false
}
