package stream

import (
	"errors"

	"github.com/benz9527/xflux/lib/infra"
)

var (
	// ErrBackpressureViolation reports a push that found a subscriber
	// with zero outstanding demand on a processor that never buffers.
	ErrBackpressureViolation = errors.New("[stream] subscriber has no outstanding demand")
	// ErrCapacityExceeded reports a registration the processor cannot
	// hold: a second unicast subscriber or an oversubscribed executor.
	ErrCapacityExceeded = errors.New("[stream] subscriber capacity exceeded")
	// ErrQueueOverflow reports a bounded buffer rejecting one value.
	// Recoverable, later pushes are accepted again.
	ErrQueueOverflow = errors.New("[stream] bounded buffer is full")
	// ErrTerminated reports a push or registration after the processor
	// reached its terminal state.
	ErrTerminated = errors.New("[stream] processor has been terminated")
	// ErrBadRequest reports a non-positive demand request.
	ErrBadRequest = errors.New("[stream] request amount must be positive")
	// ErrEmptySubscriber rejects a nil subscriber at registration.
	ErrEmptySubscriber = errors.New("[stream] subscriber must not be nil")
	// ErrSinkTaken reports a second AsSink call on the same processor.
	ErrSinkTaken = errors.New("[stream] sink facade has already been taken")
	// ErrSinkOverflow is surfaced by the ERROR overflow strategy.
	ErrSinkOverflow = errors.New("[stream] sink overflow")
)

type bubbledError struct {
	cause error
}

func (e *bubbledError) Error() string {
	return "[stream] bubbled: " + e.cause.Error()
}

func (e *bubbledError) Unwrap() error { return e.cause }

// Bubble wraps err so it can be rethrown through subscriber callbacks
// without being mistaken for a plain delivery error.
func Bubble(err error) error {
	if err == nil {
		return nil
	}
	return &bubbledError{cause: err}
}

// Propagate attaches call frames to err on its way up the pipeline.
func Propagate(err error) error {
	return infra.WrapErrorStack(err)
}

// Unwrap peels Bubble/Propagate layers down to the original cause.
func Unwrap(err error) error {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}
