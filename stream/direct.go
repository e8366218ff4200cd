package stream

import (
	"github.com/benz9527/xflux/lib/infra"
	"github.com/benz9527/xflux/lib/kv"
)

var (
	_ Processor[int]  = (*xDirectProcessor[int])(nil)
	_ sinkTarget[int] = (*xDirectProcessor[int])(nil)
)

// xDirectProcessor distributes each push to the current subscriber set
// without buffering anything. A subscriber caught with zero demand is
// terminated with a backpressure error instead of stalling the
// producer or the other subscribers.
type xDirectProcessor[T any] struct {
	processorCore[T]
	subscribers kv.ThreadSafeStorer[uint64, *directSubscription[T]]
}

// NewDirectProcessor builds the no-buffer broadcast variant.
func NewDirectProcessor[T any](opts ...XProcessorOption[T]) Processor[T] {
	p := &xDirectProcessor[T]{
		subscribers: kv.NewThreadSafeMap[uint64, *directSubscription[T]](),
	}
	p.processorCore = newProcessorCore[T](newXProcessorConfig[T](opts...))
	return p
}

type directSubscription[T any] struct {
	subscriptionBase[T]
	parent *xDirectProcessor[T]
}

func (s *directSubscription[T]) Request(n int64) {
	if !s.validateRequest(n) {
		s.parent.remove(s)
		return
	}
	s.demand.increase(n)
}

func (s *directSubscription[T]) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.parent.remove(s)
	}
}

func (p *xDirectProcessor[T]) remove(s *directSubscription[T]) {
	if _, exists := p.subscribers.Get(s.id); !exists {
		return
	}
	p.subscribers.Delete(s.id)
	p.stats().RecordSubscriberCount(-1)
	if p.config.autoCancel && p.subscribers.Len() == 0 {
		if p.moveToTerminal(stateShutdown, nil) {
			p.cancelUpstream()
		}
	}
}

func (p *xDirectProcessor[T]) Subscribe(sub Subscriber[T]) error {
	if sub == nil {
		return infra.WrapErrorStack(ErrEmptySubscriber)
	}
	if p.state.Load() == stateShutdown {
		return infra.WrapErrorStack(ErrTerminated)
	}
	s := &directSubscription[T]{parent: p}
	s.subscriptionBase = newSubscriptionBase[T](p.idGen, sub)
	sub.OnSubscribe(s)
	if p.IsTerminated() {
		p.replayTerminal(&s.subscriptionBase)
		return nil
	}
	p.subscribers.AddOrUpdate(s.id, s)
	p.stats().RecordSubscriberCount(1)
	// A terminal signal may have slipped in between the state check and
	// the registration; make sure this subscriber sees it too.
	if p.IsTerminated() {
		p.subscribers.Delete(s.id)
		p.stats().RecordSubscriberCount(-1)
		p.replayTerminal(&s.subscriptionBase)
	}
	return nil
}

func (p *xDirectProcessor[T]) SubscriberCount() int {
	return p.subscribers.Len()
}

func (p *xDirectProcessor[T]) pushValue(v T) error {
	if p.IsTerminated() {
		return infra.WrapErrorStack(ErrTerminated)
	}
	p.stats().IncreasePublishedCount()
	delivered := int64(0)
	for _, s := range p.subscribers.ListValues() {
		if !s.isActive() {
			p.remove(s)
			continue
		}
		if s.demand.current() <= 0 {
			// No demand and nowhere to park the value. Fatal to this
			// subscriber only.
			s.deliverError(infra.WrapErrorStack(ErrBackpressureViolation))
			p.remove(s)
			continue
		}
		if s.deliverValue(v) {
			s.demand.decrease(1)
			delivered++
		}
	}
	if delivered == 0 {
		p.discard(v)
	} else {
		p.stats().RecordDeliveredCount(delivered)
	}
	return nil
}

func (p *xDirectProcessor[T]) tryPushValue(v T) error {
	return p.pushValue(v)
}

func (p *xDirectProcessor[T]) pushError(err error) {
	if !p.moveToTerminal(stateErrored, err) {
		p.reportMisuse("error signal after termination, ignored")
		return
	}
	subs := p.subscribers.ListValues()
	for _, s := range subs {
		s.deliverError(err)
	}
	_ = p.subscribers.Purge()
	p.stats().RecordSubscriberCount(int64(-len(subs)))
}

func (p *xDirectProcessor[T]) pushComplete() {
	if !p.moveToTerminal(stateCompleted, nil) {
		p.reportMisuse("complete signal after termination, ignored")
		return
	}
	subs := p.subscribers.ListValues()
	for _, s := range subs {
		s.deliverComplete()
	}
	_ = p.subscribers.Purge()
	p.stats().RecordSubscriberCount(int64(-len(subs)))
}

func (p *xDirectProcessor[T]) OnSubscribe(sub Subscription) {
	p.setUpstream(sub)
	sub.Request(RequestUnbounded)
}

func (p *xDirectProcessor[T]) OnNext(v T) {
	if p.sinkBypassed() {
		p.reportMisuse("direct push while a sink facade is active, dropped")
		p.discard(v)
		return
	}
	if err := p.pushValue(v); err != nil {
		p.reportMisuse("push after termination, dropped")
		p.discard(v)
	}
}

func (p *xDirectProcessor[T]) OnError(err error) {
	p.pushError(err)
}

func (p *xDirectProcessor[T]) OnComplete() {
	p.pushComplete()
}

func (p *xDirectProcessor[T]) AsSink(opts ...SinkOption[T]) (Sink[T], error) {
	return newXSink[T](p, &p.processorCore, opts...)
}
