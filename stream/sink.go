package stream

import (
	"errors"
	"sync"

	"github.com/benz9527/xflux/lib/infra"
	"github.com/benz9527/xflux/lib/queue"
)

// sinkTarget is the internal injection surface each processor exposes
// to its sink facade. pushValue reports ErrTerminated for pushes after
// the terminal signal and a recoverable error when the processor cannot
// absorb the value right now; it may park the caller where the variant
// pushes back on producers. tryPushValue never parks.
type sinkTarget[T any] interface {
	pushValue(v T) error
	tryPushValue(v T) error
	pushError(err error)
	pushComplete()
}

// SinkOverflowStrategy selects what Sink.Next does with a value the
// processor rejects for capacity reasons.
type SinkOverflowStrategy uint8

const (
	// SinkOverflowError discards the value and surfaces ErrSinkOverflow.
	SinkOverflowError SinkOverflowStrategy = iota
	// SinkOverflowIgnore discards the value silently.
	SinkOverflowIgnore
	// SinkOverflowDrop hands the value to the drop callback.
	SinkOverflowDrop
	// SinkOverflowBuffer parks rejected values in an unbounded sink-side
	// queue and retries them in order before every later push.
	SinkOverflowBuffer
)

type sinkConfig[T any] struct {
	strategy SinkOverflowStrategy
	dropFn   func(v T)
}

type SinkOption[T any] func(config *sinkConfig[T])

func WithSinkOverflowStrategy[T any](strategy SinkOverflowStrategy) SinkOption[T] {
	return func(config *sinkConfig[T]) {
		if strategy > SinkOverflowBuffer {
			panic("unknown sink overflow strategy")
		}
		config.strategy = strategy
	}
}

// WithSinkDropCallback sets the callback for SinkOverflowDrop. Without
// it the drop strategy degrades to ignore.
func WithSinkDropCallback[T any](fn func(v T)) SinkOption[T] {
	return func(config *sinkConfig[T]) {
		if fn == nil {
			panic("drop callback must not be nil")
		}
		config.dropFn = fn
	}
}

var _ Sink[int] = (*xSink[int])(nil)

// xSink adapts one processor's push surface to the Sink contract.
// All methods are safe for concurrent use; the buffer strategy keeps
// push order by serializing Next under a mutex.
type xSink[T any] struct {
	target  sinkTarget[T]
	core    *processorCore[T]
	config  sinkConfig[T]
	mu      sync.Mutex
	pending queue.Queue[T]
	// held is the oldest parked value, popped from pending but not yet
	// accepted by the processor.
	held *T
}

func newXSink[T any](target sinkTarget[T], core *processorCore[T], opts ...SinkOption[T]) (Sink[T], error) {
	if !core.takeSink() {
		return nil, infra.WrapErrorStack(ErrSinkTaken)
	}
	sink := &xSink[T]{
		target: target,
		core:   core,
	}
	for _, o := range opts {
		if o != nil {
			o(&sink.config)
		}
	}
	if sink.config.strategy == SinkOverflowBuffer {
		sink.pending = queue.NewXLinkedQueue[T]()
	}
	return sink, nil
}

func (sink *xSink[T]) Next(v T) error {
	if sink.config.strategy == SinkOverflowBuffer {
		return sink.bufferedNext(v)
	}
	err := sink.target.pushValue(v)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTerminated) {
		sink.core.discard(v)
		return err
	}
	switch sink.config.strategy {
	case SinkOverflowIgnore:
		sink.core.discard(v)
		return nil
	case SinkOverflowDrop:
		sink.core.stats().IncreaseDroppedCount()
		if sink.config.dropFn != nil {
			sink.config.dropFn(v)
		}
		return nil
	default:
		sink.core.discard(v)
		return infra.WrapErrorStack(ErrSinkOverflow)
	}
}

// bufferedNext parks v behind any previously parked values and drains
// as far as the processor accepts. Order is preserved across retries.
func (sink *xSink[T]) bufferedNext(v T) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	sink.pending.Offer(v)
	for {
		if sink.held == nil {
			item, ok := sink.pending.Poll()
			if !ok {
				return nil
			}
			sink.held = &item
		}
		err := sink.target.pushValue(*sink.held)
		if err == nil {
			sink.held = nil
			continue
		}
		if errors.Is(err, ErrTerminated) {
			sink.discardParked()
			return err
		}
		// Recoverable rejection, retry on the next push.
		return nil
	}
}

func (sink *xSink[T]) discardParked() {
	if sink.held != nil {
		sink.core.discard(*sink.held)
		sink.held = nil
	}
	if sink.pending == nil {
		return
	}
	for {
		item, ok := sink.pending.Poll()
		if !ok {
			return
		}
		sink.core.discard(item)
	}
}

// TryNext pushes best effort. A rejected value stays owned by the
// caller, so no discard callback runs here.
func (sink *xSink[T]) TryNext(v T) error {
	return sink.target.tryPushValue(v)
}

func (sink *xSink[T]) Error(err error) {
	if sink.config.strategy == SinkOverflowBuffer {
		sink.mu.Lock()
		sink.discardParked()
		sink.mu.Unlock()
	}
	sink.target.pushError(err)
}

func (sink *xSink[T]) Complete() {
	if sink.config.strategy == SinkOverflowBuffer {
		sink.mu.Lock()
		sink.discardParked()
		sink.mu.Unlock()
	}
	sink.target.pushComplete()
}
