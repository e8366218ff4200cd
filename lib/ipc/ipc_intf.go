package ipc

import "io"

type ReadOnlyChannel[T comparable] interface {
	Wait() <-chan T
}

type SendOnlyChannel[T comparable] interface {
	Send(v T, nonBlocking ...bool) error
	IsClosed() bool
}

type ClosableChannel[T comparable] interface {
	io.Closer
	ReadOnlyChannel[T]
	SendOnlyChannel[T]
}

// BlockStrategy decides how an idle consumer goroutine waits for the
// producer side to make progress.
// WaitFor parks until eqFn reports true; Done is the producer-side wakeup.
// Strategies that never park (spin, yield, sleep) have a no-op Done.
type BlockStrategy interface {
	WaitFor(eqFn func() bool)
	Done()
}
