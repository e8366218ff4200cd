package stream

import (
	"sync"

	"github.com/benz9527/xflux/lib/bits"
	"github.com/benz9527/xflux/lib/infra"
	"github.com/benz9527/xflux/lib/ipc"
	"github.com/benz9527/xflux/lib/queue"
)

var (
	_ Processor[int]  = (*xWorkQueueProcessor[int])(nil)
	_ sinkTarget[int] = (*xWorkQueueProcessor[int])(nil)
)

// xWorkQueueProcessor is the ring-buffer work-distribution variant.
// All workers compete over one shared claim cursor, so every published
// value lands at exactly one subscriber; different subscribers see
// disjoint subsets of the sequence. While a worker processes a claimed
// sequence it advertises claim-1 as its progress, which is what keeps
// producers from wrapping over an in-flight slot.
type xWorkQueueProcessor[T any] struct {
	processorCore[T]
	rb               queue.RingBuffer[T]
	capacity         uint64
	writeCursor      queue.RingBufferCursor
	claimCursor      queue.RingBufferCursor
	termSeq          queue.RingBufferCursor
	producerStrategy ipc.BlockStrategy
	consumerStrategy ipc.BlockStrategy
	executor         Executor
	mu               sync.RWMutex
	subs             map[uint64]*workSubscription[T]
	firstTaken       bool
}

// NewWorkQueueProcessor builds the competing-consumers variant. The
// ring capacity is rounded up to a power of two.
func NewWorkQueueProcessor[T any](opts ...XProcessorOption[T]) (Processor[T], error) {
	config := newXProcessorConfig[T](opts...)
	executor, err := config.getExecutor()
	if err != nil {
		return nil, err
	}
	capacity := bits.RoundupPowOf2ByCeil(config.getRingCapacity())
	p := &xWorkQueueProcessor[T]{
		rb:               queue.NewXRingBuffer[T](capacity),
		capacity:         capacity,
		writeCursor:      queue.NewXRingBufferCursor(),
		claimCursor:      queue.NewXRingBufferCursor(),
		termSeq:          queue.NewXRingBufferCursor(),
		producerStrategy: config.getProducerStrategy(),
		consumerStrategy: config.getConsumerStrategy(),
		executor:         executor,
		subs:             make(map[uint64]*workSubscription[T], 8),
	}
	p.processorCore = newProcessorCore[T](config)
	return p, nil
}

type workSubscription[T any] struct {
	subscriptionBase[T]
	parent *xWorkQueueProcessor[T]
	// progress advertises how far this worker definitely consumed;
	// claim-1 while a claim is in flight. Single writer, the worker.
	progress queue.RingBufferCursor
}

// advanceProgress is a plain store expressed over the CAS cursor; the
// worker is the only writer so the first attempt always lands.
func (s *workSubscription[T]) advanceProgress(to uint64) {
	for {
		old := s.progress.Load()
		if old >= to || s.progress.CompareAndSwap(old, to) {
			return
		}
	}
}

func (s *workSubscription[T]) Request(n int64) {
	if !s.validateRequest(n) {
		s.parent.wakeAll()
		return
	}
	s.demand.increase(n)
	s.parent.consumerStrategy.Done()
}

func (s *workSubscription[T]) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.parent.wakeAll()
	}
}

func (p *xWorkQueueProcessor[T]) wakeAll() {
	p.consumerStrategy.Done()
	p.producerStrategy.Done()
}

func (p *xWorkQueueProcessor[T]) Subscribe(sub Subscriber[T]) error {
	if sub == nil {
		return infra.WrapErrorStack(ErrEmptySubscriber)
	}
	s := &workSubscription[T]{parent: p}
	s.subscriptionBase = newSubscriptionBase[T](p.idGen, sub)
	s.progress = queue.NewXRingBufferCursor()

	p.mu.Lock()
	if p.state.Load() != stateActive {
		p.mu.Unlock()
		return infra.WrapErrorStack(ErrTerminated)
	}
	p.firstTaken = true
	// Joining mid-stream must not re-gate producers below the floor
	// the pool already passed.
	s.progress.CompareAndSwap(0, p.claimCursor.Load())
	p.subs[s.id] = s
	p.stats().RecordSubscriberCount(1)
	p.mu.Unlock()

	if err := p.executor.Submit(func() { p.workerLoop(s) }); err != nil {
		p.mu.Lock()
		delete(p.subs, s.id)
		p.stats().RecordSubscriberCount(-1)
		p.mu.Unlock()
		p.producerStrategy.Done()
		return infra.WrapErrorStack(err)
	}
	sub.OnSubscribe(s)
	return nil
}

func (p *xWorkQueueProcessor[T]) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

func (p *xWorkQueueProcessor[T]) slowestConsumed() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.subs) == 0 {
		if !p.firstTaken {
			return 0
		}
		return p.writeCursor.Load()
	}
	slowest := ^uint64(0)
	for _, s := range p.subs {
		if c := s.progress.Load(); c < slowest {
			slowest = c
		}
	}
	return slowest
}

func (p *xWorkQueueProcessor[T]) entryReady(seq uint64) bool {
	return p.rb.LoadEntryByCursor(seq).GetCursor() == seq
}

func (p *xWorkQueueProcessor[T]) terminalReached(seq uint64) bool {
	switch p.state.Load() {
	case stateActive:
		return false
	case stateShutdown:
		return true
	default:
		return seq > p.termSeq.Load()
	}
}

func (p *xWorkQueueProcessor[T]) finishWorker(s *workSubscription[T]) {
	switch p.state.Load() {
	case stateErrored:
		s.deliverError(p.terminalError())
	case stateCompleted:
		s.deliverComplete()
	default:
	}
	p.detach(s)
}

func (p *xWorkQueueProcessor[T]) workerLoop(s *workSubscription[T]) {
	var next uint64
	claimed := false
	for {
		if s.cancelled.Load() {
			if claimed {
				// The claim is ours; consume the slot so producers do
				// not stall on a dead worker.
				p.consumeClaim(s, next, false)
			}
			p.detach(s)
			return
		}
		if !claimed {
			if s.demand.current() <= 0 {
				p.consumerStrategy.WaitFor(func() bool {
					return s.cancelled.Load() || s.demand.current() > 0 ||
						p.terminalReached(p.claimCursor.Load()+1)
				})
				if p.terminalReached(p.claimCursor.Load()+1) && s.demand.current() <= 0 {
					p.finishWorker(s)
					return
				}
				continue
			}
			cur := p.claimCursor.Load()
			next = cur + 1
			if p.terminalReached(next) {
				p.finishWorker(s)
				return
			}
			s.advanceProgress(next - 1)
			if !p.claimCursor.CompareAndSwap(cur, next) {
				continue
			}
			claimed = true
		}
		if !p.entryReady(next) {
			// The claim may sit beyond the terminal snapshot and then
			// nothing will ever be published there.
			if p.terminalReached(next) {
				p.finishWorker(s)
				return
			}
			p.consumerStrategy.WaitFor(func() bool {
				return s.cancelled.Load() || p.entryReady(next) || p.terminalReached(next)
			})
			continue
		}
		p.consumeClaim(s, next, true)
		claimed = false
	}
}

// consumeClaim copies the value out of the slot, releases the slot for
// producers and hands the value over (or discards it on a dead
// subscriber).
func (p *xWorkQueueProcessor[T]) consumeClaim(s *workSubscription[T], seq uint64, deliver bool) {
	if !p.entryReady(seq) {
		// Claimed but never published (terminal hole); just release.
		s.advanceProgress(seq)
		p.producerStrategy.Done()
		return
	}
	v := p.rb.LoadEntryByCursor(seq).GetValue()
	s.advanceProgress(seq)
	p.producerStrategy.Done()
	// Siblings parked on the claim stream re-check it now.
	p.consumerStrategy.Done()
	if deliver && s.deliverValue(v) {
		s.demand.decrease(1)
		p.stats().RecordDeliveredCount(1)
		return
	}
	p.discard(v)
}

func (p *xWorkQueueProcessor[T]) detach(s *workSubscription[T]) {
	shutdown := false
	p.mu.Lock()
	if _, ok := p.subs[s.id]; ok {
		delete(p.subs, s.id)
		p.stats().RecordSubscriberCount(-1)
	}
	if len(p.subs) == 0 && p.firstTaken && p.config.autoCancel {
		if p.moveToTerminal(stateShutdown, nil) {
			shutdown = true
		}
	}
	p.mu.Unlock()
	p.wakeAll()
	if shutdown {
		p.cancelUpstream()
	}
}

func (p *xWorkQueueProcessor[T]) pushValue(v T) error {
	if p.IsTerminated() {
		return infra.WrapErrorStack(ErrTerminated)
	}
	seq := p.writeCursor.Next()
	p.producerStrategy.WaitFor(func() bool {
		return seq <= p.slowestConsumed()+p.capacity
	})
	p.rb.LoadEntryByCursor(seq).Store(seq, v)
	if p.IsTerminated() && seq > p.termSeq.Load() {
		// Nobody reads past termSeq; the value stays owned by the caller.
		return infra.WrapErrorStack(ErrTerminated)
	}
	p.stats().IncreasePublishedCount()
	p.consumerStrategy.Done()
	return nil
}

func (p *xWorkQueueProcessor[T]) tryPushValue(v T) error {
	if p.IsTerminated() {
		return infra.WrapErrorStack(ErrTerminated)
	}
	if p.writeCursor.Load()+1 > p.slowestConsumed()+p.capacity {
		return infra.WrapErrorStack(ErrQueueOverflow)
	}
	return p.pushValue(v)
}

func (p *xWorkQueueProcessor[T]) terminate(target processorState, err error) bool {
	seq := p.writeCursor.Load()
	if !p.moveToTerminal(target, err) {
		return false
	}
	p.termSeq.CompareAndSwap(0, seq)
	p.wakeAll()
	return true
}

func (p *xWorkQueueProcessor[T]) pushError(err error) {
	if !p.terminate(stateErrored, err) {
		p.reportMisuse("error signal after termination, ignored")
	}
}

func (p *xWorkQueueProcessor[T]) pushComplete() {
	if !p.terminate(stateCompleted, nil) {
		p.reportMisuse("complete signal after termination, ignored")
	}
}

func (p *xWorkQueueProcessor[T]) OnSubscribe(sub Subscription) {
	p.setUpstream(sub)
	sub.Request(RequestUnbounded)
}

func (p *xWorkQueueProcessor[T]) OnNext(v T) {
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

func (p *xWorkQueueProcessor[T]) OnError(err error) {
	p.pushError(err)
}

func (p *xWorkQueueProcessor[T]) OnComplete() {
	p.pushComplete()
}

func (p *xWorkQueueProcessor[T]) AsSink(opts ...SinkOption[T]) (Sink[T], error) {
	return newXSink[T](p, &p.processorCore, opts...)
}
