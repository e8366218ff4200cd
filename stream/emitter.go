package stream

import (
	"sync"
	"sync/atomic"

	"github.com/benz9527/xflux/lib/infra"
)

var (
	_ Processor[int]  = (*xEmitterProcessor[int])(nil)
	_ sinkTarget[int] = (*xEmitterProcessor[int])(nil)
)

type emitterEntry[T any] struct {
	seq uint64
	v   T
}

// xEmitterProcessor is the shared-backlog multicast variant. Values are
// sequenced into one buffer; each subscriber owns a cursor into it and
// is served at its own demand. A bounded buffer pushes back on the
// producer by parking it until the slowest entitled subscriber frees a
// slot. The first subscriber ever is entitled to the pre-registration
// backlog, later ones only to values sequenced after they joined.
type xEmitterProcessor[T any] struct {
	processorCore[T]
	mu      sync.Mutex
	notFull *sync.Cond
	buffer  []emitterEntry[T]
	// baseSeq is the sequence of buffer[0]; entries are consecutive so
	// lookup is plain offset arithmetic.
	baseSeq    uint64
	lastSeq    uint64
	firstTaken bool
	subs       map[uint64]*emitterSubscription[T]
	wip        atomic.Int64
}

// NewEmitterProcessor builds the backlog-buffering multicast variant.
func NewEmitterProcessor[T any](opts ...XProcessorOption[T]) Processor[T] {
	p := &xEmitterProcessor[T]{
		baseSeq: 1,
		subs:    make(map[uint64]*emitterSubscription[T], 8),
	}
	p.processorCore = newProcessorCore[T](newXProcessorConfig[T](opts...))
	p.notFull = sync.NewCond(&p.mu)
	return p
}

type emitterSubscription[T any] struct {
	subscriptionBase[T]
	parent *xEmitterProcessor[T]
	// joinSeq fences entitlement: this subscriber only ever sees
	// sequences greater than joinSeq. Zero means full backlog.
	joinSeq uint64
	// nextSeq is the cursor of the delivery side, guarded by parent.mu.
	nextSeq uint64
}

func (s *emitterSubscription[T]) Request(n int64) {
	if !s.validateRequest(n) {
		s.parent.detach(s)
		return
	}
	s.demand.increase(n)
	s.parent.drain()
}

func (s *emitterSubscription[T]) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	s.parent.detach(s)
}

// detach unregisters s and applies the auto-cancel policy when the
// last subscriber leaves.
func (p *xEmitterProcessor[T]) detach(s *emitterSubscription[T]) {
	shutdown := false
	p.mu.Lock()
	if _, ok := p.subs[s.id]; ok {
		delete(p.subs, s.id)
		p.stats().RecordSubscriberCount(-1)
	}
	if len(p.subs) == 0 && p.firstTaken && p.config.autoCancel {
		if p.moveToTerminal(stateShutdown, nil) {
			shutdown = true
			p.dropBufferLocked()
		}
	}
	// A parked producer either finds room now or sees the shutdown.
	p.notFull.Broadcast()
	p.mu.Unlock()
	if shutdown {
		p.cancelUpstream()
	}
}

func (p *xEmitterProcessor[T]) dropBufferLocked() {
	for i := range p.buffer {
		p.discard(p.buffer[i].v)
	}
	p.buffer = p.buffer[:0]
	p.baseSeq = p.lastSeq + 1
}

func (p *xEmitterProcessor[T]) Subscribe(sub Subscriber[T]) error {
	if sub == nil {
		return infra.WrapErrorStack(ErrEmptySubscriber)
	}
	s := &emitterSubscription[T]{parent: p}
	s.subscriptionBase = newSubscriptionBase[T](p.idGen, sub)
	p.mu.Lock()
	if p.state.Load() != stateActive {
		p.mu.Unlock()
		return infra.WrapErrorStack(ErrTerminated)
	}
	if !p.firstTaken {
		p.firstTaken = true
		s.joinSeq = 0
	} else {
		s.joinSeq = p.lastSeq
	}
	s.nextSeq = s.joinSeq + 1
	p.subs[s.id] = s
	p.stats().RecordSubscriberCount(1)
	p.mu.Unlock()
	sub.OnSubscribe(s)
	p.drain()
	return nil
}

func (p *xEmitterProcessor[T]) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *xEmitterProcessor[T]) drain() {
	if p.wip.Add(1) != 1 {
		return
	}
	missed := int64(1)
	for {
		p.drainPass()
		missed = p.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// drainPass collects deliverable values per subscriber under the lock
// and hands them over outside it, so subscriber callbacks are free to
// call Request or Cancel re-entrantly. Only one pass runs at a time
// (wip serialization), which keeps per-subscriber order intact.
func (p *xEmitterProcessor[T]) drainPass() {
	type delivery struct {
		s    *emitterSubscription[T]
		vals []T
		// terminal is set once s consumed everything it is entitled to
		// and the processor is terminated.
		terminal bool
	}
	var work []delivery

	p.mu.Lock()
	state := p.state.Load()
	for id, s := range p.subs {
		if !s.isActive() {
			delete(p.subs, id)
			continue
		}
		start := s.nextSeq
		if start < p.baseSeq {
			start = p.baseSeq
		}
		var vals []T
		for s.demand.current() > 0 && start <= p.lastSeq {
			vals = append(vals, p.buffer[start-p.baseSeq].v)
			s.demand.decrease(1)
			start++
		}
		s.nextSeq = start
		d := delivery{s: s, vals: vals}
		if start > p.lastSeq && (state == stateCompleted || state == stateErrored) {
			d.terminal = true
			delete(p.subs, id)
			p.stats().RecordSubscriberCount(-1)
		}
		if len(d.vals) > 0 || d.terminal {
			work = append(work, d)
		}
	}
	if len(p.subs) == 0 && state != stateActive {
		// Nobody left to consume the remainder.
		p.dropBufferLocked()
	} else {
		p.evictLocked()
	}
	p.mu.Unlock()

	terminalErr := p.terminalError()
	delivered := int64(0)
	for _, d := range work {
		for _, v := range d.vals {
			if d.s.deliverValue(v) {
				delivered++
			} else {
				p.discard(v)
			}
		}
		if d.terminal {
			if state == stateErrored {
				d.s.deliverError(terminalErr)
			} else {
				d.s.deliverComplete()
			}
		}
	}
	if delivered > 0 {
		p.stats().RecordDeliveredCount(delivered)
	}
}

// evictLocked drops buffer entries every remaining subscriber has
// passed, then wakes producers parked on a full buffer.
func (p *xEmitterProcessor[T]) evictLocked() {
	if len(p.buffer) == 0 {
		return
	}
	minNeed := p.lastSeq + 1
	if len(p.subs) == 0 {
		if !p.firstTaken {
			// Keep the backlog for the first subscriber.
			return
		}
		// Nobody is entitled to these values anymore.
		for i := range p.buffer {
			p.discard(p.buffer[i].v)
		}
	} else {
		for _, s := range p.subs {
			need := s.nextSeq
			if need <= s.joinSeq {
				need = s.joinSeq + 1
			}
			if need < minNeed {
				minNeed = need
			}
		}
	}
	if minNeed <= p.baseSeq {
		return
	}
	p.buffer = p.buffer[minNeed-p.baseSeq:]
	p.baseSeq = minNeed
	p.notFull.Broadcast()
}

func (p *xEmitterProcessor[T]) pushValue(v T) error {
	return p.push(v, true)
}

func (p *xEmitterProcessor[T]) tryPushValue(v T) error {
	return p.push(v, false)
}

// push sequences v into the buffer. With wait set, a full bounded
// buffer parks the caller until draining frees a slot; otherwise the
// push is rejected immediately.
func (p *xEmitterProcessor[T]) push(v T, wait bool) error {
	capacity := p.config.getBufferCapacity()
	p.mu.Lock()
	if !p.config.unboundedBuffer {
		for p.state.Load() == stateActive && uint64(len(p.buffer)) >= capacity {
			if !wait {
				p.mu.Unlock()
				return infra.WrapErrorStack(ErrQueueOverflow)
			}
			p.notFull.Wait()
		}
	}
	if p.state.Load() != stateActive {
		p.mu.Unlock()
		return infra.WrapErrorStack(ErrTerminated)
	}
	p.lastSeq++
	p.buffer = append(p.buffer, emitterEntry[T]{seq: p.lastSeq, v: v})
	p.mu.Unlock()
	p.stats().IncreasePublishedCount()
	p.drain()
	return nil
}

func (p *xEmitterProcessor[T]) pushError(err error) {
	if !p.moveToTerminal(stateErrored, err) {
		p.reportMisuse("error signal after termination, ignored")
		return
	}
	p.mu.Lock()
	p.notFull.Broadcast()
	p.mu.Unlock()
	p.drain()
}

func (p *xEmitterProcessor[T]) pushComplete() {
	if !p.moveToTerminal(stateCompleted, nil) {
		p.reportMisuse("complete signal after termination, ignored")
		return
	}
	p.mu.Lock()
	p.notFull.Broadcast()
	p.mu.Unlock()
	p.drain()
}

func (p *xEmitterProcessor[T]) OnSubscribe(sub Subscription) {
	p.setUpstream(sub)
	sub.Request(RequestUnbounded)
}

func (p *xEmitterProcessor[T]) OnNext(v T) {
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

func (p *xEmitterProcessor[T]) OnError(err error) {
	p.pushError(err)
}

func (p *xEmitterProcessor[T]) OnComplete() {
	p.pushComplete()
}

func (p *xEmitterProcessor[T]) AsSink(opts ...SinkOption[T]) (Sink[T], error) {
	return newXSink[T](p, &p.processorCore, opts...)
}
