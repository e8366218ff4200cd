package stream

import (
	"sync/atomic"

	"github.com/benz9527/xflux/lib/infra"
	"github.com/benz9527/xflux/lib/queue"
)

var (
	_ Processor[int]  = (*xUnicastProcessor[int])(nil)
	_ sinkTarget[int] = (*xUnicastProcessor[int])(nil)
)

// xUnicastProcessor buffers every push and serves exactly one
// subscriber, ever. Values are queued regardless of demand and drained
// in FIFO order whenever demand allows, so a slow subscriber never
// fails, it just lags.
type xUnicastProcessor[T any] struct {
	processorCore[T]
	q queue.Queue[T]
	// once latches on the first registration attempt. It never resets,
	// a second subscriber is refused even after the first cancelled.
	once atomic.Bool
	sub  atomic.Pointer[unicastSubscription[T]]
	// wip serializes the drain loop: whoever raises it from zero owns
	// the loop, everyone else just records a missed pass.
	wip atomic.Int64
}

// NewUnicastProcessor builds the single-subscriber buffered variant.
func NewUnicastProcessor[T any](opts ...XProcessorOption[T]) Processor[T] {
	p := &xUnicastProcessor[T]{}
	p.processorCore = newProcessorCore[T](newXProcessorConfig[T](opts...))
	if p.config.unboundedBuffer {
		p.q = queue.NewXLinkedQueue[T]()
	} else {
		// Rejected values stay owned by the pusher; the sink facade or
		// OnNext decides what happens to them.
		p.q = queue.NewXArrayQueue[T](p.config.getBufferCapacity())
	}
	return p
}

type unicastSubscription[T any] struct {
	subscriptionBase[T]
	parent *xUnicastProcessor[T]
}

func (s *unicastSubscription[T]) Request(n int64) {
	if !s.validateRequest(n) {
		return
	}
	s.demand.increase(n)
	s.parent.drain()
}

func (s *unicastSubscription[T]) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	p := s.parent
	p.stats().RecordSubscriberCount(-1)
	if p.moveToTerminal(stateShutdown, nil) {
		p.cancelUpstream()
	}
	// The drain loop notices the cancel flag and drops the queue.
	p.drain()
}

func (p *xUnicastProcessor[T]) Subscribe(sub Subscriber[T]) error {
	if sub == nil {
		return infra.WrapErrorStack(ErrEmptySubscriber)
	}
	if !p.once.CompareAndSwap(false, true) {
		return infra.WrapErrorStack(ErrCapacityExceeded)
	}
	s := &unicastSubscription[T]{parent: p}
	s.subscriptionBase = newSubscriptionBase[T](p.idGen, sub)
	p.sub.Store(s)
	p.stats().RecordSubscriberCount(1)
	sub.OnSubscribe(s)
	// Deliver whatever was queued before the registration, and the
	// pending terminal signal if one already arrived.
	p.drain()
	return nil
}

func (p *xUnicastProcessor[T]) SubscriberCount() int {
	if s := p.sub.Load(); s != nil && s.isActive() {
		return 1
	}
	return 0
}

// drain moves queued values to the subscriber as demand allows, then
// emits the stored terminal signal once the queue is empty. Concurrent
// callers collapse into one active loop via the wip counter.
func (p *xUnicastProcessor[T]) drain() {
	if p.wip.Add(1) != 1 {
		return
	}
	missed := int64(1)
	for {
		if s := p.sub.Load(); s != nil {
			if s.cancelled.Load() {
				p.dropQueue()
			} else {
				p.drainTo(s)
			}
		}
		missed = p.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

func (p *xUnicastProcessor[T]) drainTo(s *unicastSubscription[T]) {
	emitted := int64(0)
	for s.demand.current() > 0 {
		v, ok := p.q.Poll()
		if !ok {
			break
		}
		if !s.deliverValue(v) {
			p.discard(v)
			break
		}
		s.demand.decrease(1)
		emitted++
	}
	if emitted > 0 {
		p.stats().RecordDeliveredCount(emitted)
	}
	if p.q.Len() > 0 {
		return
	}
	switch p.state.Load() {
	case stateErrored:
		s.deliverError(p.terminalError())
	case stateCompleted:
		s.deliverComplete()
	default:
	}
}

func (p *xUnicastProcessor[T]) dropQueue() {
	for {
		v, ok := p.q.Poll()
		if !ok {
			return
		}
		p.discard(v)
	}
}

func (p *xUnicastProcessor[T]) pushValue(v T) error {
	if p.state.Load() != stateActive {
		return infra.WrapErrorStack(ErrTerminated)
	}
	if !p.q.Offer(v) {
		return infra.WrapErrorStack(ErrQueueOverflow)
	}
	p.stats().IncreasePublishedCount()
	p.drain()
	return nil
}

func (p *xUnicastProcessor[T]) tryPushValue(v T) error {
	return p.pushValue(v)
}

func (p *xUnicastProcessor[T]) pushError(err error) {
	if !p.moveToTerminal(stateErrored, err) {
		p.reportMisuse("error signal after termination, ignored")
		return
	}
	p.drain()
}

func (p *xUnicastProcessor[T]) pushComplete() {
	if !p.moveToTerminal(stateCompleted, nil) {
		p.reportMisuse("complete signal after termination, ignored")
		return
	}
	p.drain()
}

func (p *xUnicastProcessor[T]) OnSubscribe(sub Subscription) {
	p.setUpstream(sub)
	sub.Request(RequestUnbounded)
}

func (p *xUnicastProcessor[T]) OnNext(v T) {
	if p.sinkBypassed() {
		p.reportMisuse("direct push while a sink facade is active, dropped")
		p.discard(v)
		return
	}
	if err := p.pushValue(v); err != nil {
		p.reportMisuse("push rejected, dropped")
		p.discard(v)
	}
}

func (p *xUnicastProcessor[T]) OnError(err error) {
	p.pushError(err)
}

func (p *xUnicastProcessor[T]) OnComplete() {
	p.pushComplete()
}

func (p *xUnicastProcessor[T]) AsSink(opts ...SinkOption[T]) (Sink[T], error) {
	return newXSink[T](p, &p.processorCore, opts...)
}
