// Package stream implements in-process reactive signal distribution:
// a family of thread-safe processors that let plain imperative code
// push values, an error or a completion into a demand-driven pipeline.
// All state is in memory and dies with the process.
package stream

// Subscription is the per-subscriber control channel back to the
// publisher. Request declares additional demand, Cancel detaches the
// subscriber cooperatively (an in-flight delivery is not interrupted).
type Subscription interface {
	// Request adds n to the subscriber's outstanding demand.
	// n <= 0 is a protocol violation and terminates only this
	// subscriber with an error.
	Request(n int64)
	Cancel()
}

// Subscriber receives signals. After one terminal signal (OnError or
// OnComplete) no further signal of any kind is delivered.
type Subscriber[T any] interface {
	OnSubscribe(sub Subscription)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// Publisher registers subscribers. A failed registration returns an
// error and delivers no signal at all to the rejected subscriber.
type Publisher[T any] interface {
	Subscribe(sub Subscriber[T]) error
}

// Processor is both ends at once: a Publisher towards downstream
// subscribers and a Subscriber that an upstream Publisher can feed.
// Manual injection goes through the Sink facade obtained once via
// AsSink; mixing direct OnNext calls with an obtained Sink is a
// protocol misuse, reported and dropped, never corrupting.
type Processor[T any] interface {
	Publisher[T]
	Subscriber[T]

	AsSink(opts ...SinkOption[T]) (Sink[T], error)
	SubscriberCount() int
	IsTerminated() bool
}

// Sink is the manual injection facade over exactly one processor.
type Sink[T any] interface {
	// Next pushes a value, applying the sink's overflow strategy when
	// the processor cannot absorb it.
	Next(v T) error
	// TryNext pushes best effort and reports rejection to the caller
	// instead of applying the overflow strategy.
	TryNext(v T) error
	Error(err error)
	Complete()
}

// Executor supplies capacity for delivery goroutines of the
// ring-buffer processors. MaxConcurrency reports the upper bound
// (negative means unbounded) so over-subscription fails fast at
// registration instead of silently starving a subscriber.
type Executor interface {
	Submit(task func()) error
	MaxConcurrency() int
	Running() int
	Release()
}

type processorState = int32

const (
	stateActive processorState = iota
	stateCompleted
	stateErrored
	// stateShutdown is the administrative terminal state entered by
	// auto-cancel; no terminal signal is replayed from it.
	stateShutdown
)
