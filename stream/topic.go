package stream

import (
	"sync"

	"github.com/benz9527/xflux/lib/bits"
	"github.com/benz9527/xflux/lib/infra"
	"github.com/benz9527/xflux/lib/ipc"
	"github.com/benz9527/xflux/lib/queue"
)

var (
	_ Processor[int]  = (*xTopicProcessor[int])(nil)
	_ sinkTarget[int] = (*xTopicProcessor[int])(nil)
)

// xTopicProcessor is the ring-buffer fan-out variant. Producers claim
// sequences from a shared cursor and publish into slots; every
// subscriber owns a private read cursor plus a dedicated delivery
// goroutine, so each one independently sees the full sequence. The
// slot's own cursor value is the publish barrier, a reader owns
// sequence s only once the slot at s stores s.
type xTopicProcessor[T any] struct {
	processorCore[T]
	rb          queue.RingBuffer[T]
	capacity    uint64
	writeCursor queue.RingBufferCursor
	// termSeq is the highest sequence covered by the terminal signal;
	// delivery loops exit once their cursor passes it.
	termSeq          queue.RingBufferCursor
	producerStrategy ipc.BlockStrategy
	consumerStrategy ipc.BlockStrategy
	executor         Executor
	mu               sync.RWMutex
	subs             map[uint64]*topicSubscription[T]
	firstTaken       bool
}

// NewTopicProcessor builds the ring-buffer broadcast variant. The ring
// capacity is rounded up to a power of two.
func NewTopicProcessor[T any](opts ...XProcessorOption[T]) (Processor[T], error) {
	config := newXProcessorConfig[T](opts...)
	executor, err := config.getExecutor()
	if err != nil {
		return nil, err
	}
	capacity := bits.RoundupPowOf2ByCeil(config.getRingCapacity())
	p := &xTopicProcessor[T]{
		rb:               queue.NewXRingBuffer[T](capacity),
		capacity:         capacity,
		writeCursor:      queue.NewXRingBufferCursor(),
		termSeq:          queue.NewXRingBufferCursor(),
		producerStrategy: config.getProducerStrategy(),
		consumerStrategy: config.getConsumerStrategy(),
		executor:         executor,
		subs:             make(map[uint64]*topicSubscription[T], 8),
	}
	p.processorCore = newProcessorCore[T](config)
	return p, nil
}

type topicSubscription[T any] struct {
	subscriptionBase[T]
	parent *xTopicProcessor[T]
	// readCursor holds the last sequence delivered to this subscriber.
	// Advanced only by the owning delivery goroutine, read by producers
	// for the wrap gate.
	readCursor queue.RingBufferCursor
}

func (s *topicSubscription[T]) Request(n int64) {
	if !s.validateRequest(n) {
		// The cancel flag is set; the delivery loop cleans up.
		s.parent.wakeAll()
		return
	}
	s.demand.increase(n)
	s.parent.consumerStrategy.Done()
}

func (s *topicSubscription[T]) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.parent.wakeAll()
	}
}

func (p *xTopicProcessor[T]) wakeAll() {
	p.consumerStrategy.Done()
	p.producerStrategy.Done()
}

func (p *xTopicProcessor[T]) Subscribe(sub Subscriber[T]) error {
	if sub == nil {
		return infra.WrapErrorStack(ErrEmptySubscriber)
	}
	s := &topicSubscription[T]{parent: p}
	s.subscriptionBase = newSubscriptionBase[T](p.idGen, sub)
	s.readCursor = queue.NewXRingBufferCursor()

	p.mu.Lock()
	if p.state.Load() != stateActive {
		p.mu.Unlock()
		return infra.WrapErrorStack(ErrTerminated)
	}
	if !p.firstTaken {
		// The first subscriber starts at zero and drains whatever was
		// published before anyone registered.
		p.firstTaken = true
	} else {
		s.readCursor.CompareAndSwap(0, p.writeCursor.Load())
	}
	p.subs[s.id] = s
	p.stats().RecordSubscriberCount(1)
	p.mu.Unlock()

	// One dedicated delivery goroutine per subscriber. An exhausted
	// executor is a registration failure, not silent starvation.
	if err := p.executor.Submit(func() { p.deliveryLoop(s) }); err != nil {
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

func (p *xTopicProcessor[T]) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// slowestConsumed is the wrap gate floor: producers must not claim
// further than capacity ahead of it. With no subscribers it preserves
// the backlog until the first one arrives, afterwards an empty
// registry frees the producers entirely.
func (p *xTopicProcessor[T]) slowestConsumed() uint64 {
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
		if c := s.readCursor.Load(); c < slowest {
			slowest = c
		}
	}
	return slowest
}

func (p *xTopicProcessor[T]) entryReady(seq uint64) bool {
	return p.rb.LoadEntryByCursor(seq).GetCursor() == seq
}

// terminalReached reports whether the subscriber sitting before seq
// has nothing left to consume but the terminal signal.
func (p *xTopicProcessor[T]) terminalReached(seq uint64) bool {
	switch p.state.Load() {
	case stateActive:
		return false
	case stateShutdown:
		return true
	default:
		return seq > p.termSeq.Load()
	}
}

func (p *xTopicProcessor[T]) deliveryLoop(s *topicSubscription[T]) {
	for {
		if s.cancelled.Load() {
			p.detach(s)
			return
		}
		next := s.readCursor.Load() + 1
		if p.terminalReached(next) {
			switch p.state.Load() {
			case stateErrored:
				s.deliverError(p.terminalError())
			case stateCompleted:
				s.deliverComplete()
			default:
			}
			p.detach(s)
			return
		}
		if p.entryReady(next) && s.demand.current() > 0 {
			v := p.rb.LoadEntryByCursor(next).GetValue()
			if s.deliverValue(v) {
				s.demand.decrease(1)
				p.stats().RecordDeliveredCount(1)
			}
			s.readCursor.Next()
			p.producerStrategy.Done()
			continue
		}
		p.consumerStrategy.WaitFor(func() bool {
			return s.cancelled.Load() || p.terminalReached(next) ||
				(p.entryReady(next) && s.demand.current() > 0)
		})
	}
}

func (p *xTopicProcessor[T]) detach(s *topicSubscription[T]) {
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

func (p *xTopicProcessor[T]) pushValue(v T) error {
	if p.IsTerminated() {
		return infra.WrapErrorStack(ErrTerminated)
	}
	seq := p.writeCursor.Next()
	// A claimed sequence is always published, even if termination races
	// in, otherwise a delivery loop could wait forever on the hole.
	p.producerStrategy.WaitFor(func() bool {
		return seq <= p.slowestConsumed()+p.capacity
	})
	p.rb.LoadEntryByCursor(seq).Store(seq, v)
	// Termination may have raced in between the state check and the
	// claim; sequences past termSeq are never read by anyone, so the
	// value stays owned by the caller.
	if p.IsTerminated() && seq > p.termSeq.Load() {
		return infra.WrapErrorStack(ErrTerminated)
	}
	p.stats().IncreasePublishedCount()
	p.consumerStrategy.Done()
	return nil
}

// tryPushValue refuses instead of parking when the ring is full
// relative to the slowest subscriber. The gate check races with other
// producers; it is best effort by design of the claim protocol.
func (p *xTopicProcessor[T]) tryPushValue(v T) error {
	if p.IsTerminated() {
		return infra.WrapErrorStack(ErrTerminated)
	}
	if p.writeCursor.Load()+1 > p.slowestConsumed()+p.capacity {
		return infra.WrapErrorStack(ErrQueueOverflow)
	}
	return p.pushValue(v)
}

func (p *xTopicProcessor[T]) terminate(target processorState, err error) bool {
	// Snapshot the claim cursor first so every sequence claimed before
	// the state flip is still delivered ahead of the terminal signal.
	seq := p.writeCursor.Load()
	if !p.moveToTerminal(target, err) {
		return false
	}
	p.termSeq.CompareAndSwap(0, seq)
	p.wakeAll()
	return true
}

func (p *xTopicProcessor[T]) pushError(err error) {
	if !p.terminate(stateErrored, err) {
		p.reportMisuse("error signal after termination, ignored")
	}
}

func (p *xTopicProcessor[T]) pushComplete() {
	if !p.terminate(stateCompleted, nil) {
		p.reportMisuse("complete signal after termination, ignored")
	}
}

func (p *xTopicProcessor[T]) OnSubscribe(sub Subscription) {
	p.setUpstream(sub)
	sub.Request(RequestUnbounded)
}

func (p *xTopicProcessor[T]) OnNext(v T) {
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

func (p *xTopicProcessor[T]) OnError(err error) {
	p.pushError(err)
}

func (p *xTopicProcessor[T]) OnComplete() {
	p.pushComplete()
}

func (p *xTopicProcessor[T]) AsSink(opts ...SinkOption[T]) (Sink[T], error) {
	return newXSink[T](p, &p.processorCore, opts...)
}
