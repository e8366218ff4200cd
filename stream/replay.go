package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benz9527/xflux/lib/infra"
)

var (
	_ Processor[int]  = (*xReplayProcessor[int])(nil)
	_ sinkTarget[int] = (*xReplayProcessor[int])(nil)
)

// replayNode is one history entry. The chain is append-only through
// atomic next pointers, so subscribers walk it without the processor
// lock; eviction only moves the processor's head reference forward and
// never unlinks a node a subscriber may still hold.
type replayNode[T any] struct {
	v    T
	ts   time.Duration
	next atomic.Pointer[replayNode[T]]
}

// xReplayProcessor caches pushed values and replays the cached history
// to every new subscriber before switching it to live delivery. History
// is bounded by a count limit, a time window, or both; zero for either
// means unlimited on that axis.
type xReplayProcessor[T any] struct {
	processorCore[T]
	mu sync.Mutex
	// head is a sentinel: history begins at head.next. A subscriber's
	// cursor starts at the sentinel current at registration time.
	head *replayNode[T]
	tail *replayNode[T]
	size int
	subs map[uint64]*replaySubscription[T]
}

// NewReplayProcessor builds the history-caching variant.
func NewReplayProcessor[T any](opts ...XProcessorOption[T]) Processor[T] {
	sentinel := &replayNode[T]{}
	p := &xReplayProcessor[T]{
		head: sentinel,
		tail: sentinel,
		subs: make(map[uint64]*replaySubscription[T], 8),
	}
	p.processorCore = newProcessorCore[T](newXProcessorConfig[T](opts...))
	return p
}

type replaySubscription[T any] struct {
	subscriptionBase[T]
	parent *xReplayProcessor[T]
	// node is the last delivered history node; delivery resumes at
	// node.next. Touched only inside the wip-owned drain loop.
	node *replayNode[T]
	wip  atomic.Int64
}

func (s *replaySubscription[T]) Request(n int64) {
	if !s.validateRequest(n) {
		s.parent.detach(s)
		return
	}
	s.demand.increase(n)
	s.drain()
}

func (s *replaySubscription[T]) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.parent.detach(s)
	}
}

// drain walks the history chain for this subscriber alone, pausing
// whenever demand runs out and resuming on the next Request. Once the
// chain is exhausted and the processor is terminated, the terminal
// signal is replayed last.
func (s *replaySubscription[T]) drain() {
	if s.wip.Add(1) != 1 {
		return
	}
	missed := int64(1)
	for {
		emitted := int64(0)
		for s.isActive() && s.demand.current() > 0 {
			next := s.node.next.Load()
			if next == nil {
				break
			}
			s.node = next
			if s.deliverValue(next.v) {
				s.demand.decrease(1)
				emitted++
			}
		}
		if emitted > 0 {
			s.parent.stats().RecordDeliveredCount(emitted)
		}
		if s.isActive() && s.node.next.Load() == nil {
			switch s.parent.state.Load() {
			case stateErrored:
				if s.deliverError(s.parent.terminalError()) {
					s.parent.detach(s)
				}
			case stateCompleted:
				if s.deliverComplete() {
					s.parent.detach(s)
				}
			default:
			}
		}
		missed = s.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

func (p *xReplayProcessor[T]) detach(s *replaySubscription[T]) {
	p.mu.Lock()
	if _, ok := p.subs[s.id]; ok {
		delete(p.subs, s.id)
		p.stats().RecordSubscriberCount(-1)
	}
	p.mu.Unlock()
}

func (p *xReplayProcessor[T]) Subscribe(sub Subscriber[T]) error {
	if sub == nil {
		return infra.WrapErrorStack(ErrEmptySubscriber)
	}
	s := &replaySubscription[T]{parent: p}
	s.subscriptionBase = newSubscriptionBase[T](p.idGen, sub)
	p.mu.Lock()
	s.node = p.positionLocked()
	p.subs[s.id] = s
	p.stats().RecordSubscriberCount(1)
	p.mu.Unlock()
	sub.OnSubscribe(s)
	// Replay starts immediately, gated only by the demand the
	// subscriber advertises.
	s.drain()
	return nil
}

// positionLocked yields the cursor a new subscriber starts from: the
// current sentinel, advanced past entries that fell out of the time
// window measured at replay time.
func (p *xReplayProcessor[T]) positionLocked() *replayNode[T] {
	window := p.config.replayWindow
	if window <= 0 {
		return p.head
	}
	now := p.config.getClock().MonotonicElapsed()
	node := p.head
	for {
		next := node.next.Load()
		if next == nil || now-next.ts <= window {
			return node
		}
		node = next
	}
}

func (p *xReplayProcessor[T]) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *xReplayProcessor[T]) pushValue(v T) error {
	if p.IsTerminated() {
		return infra.WrapErrorStack(ErrTerminated)
	}
	n := &replayNode[T]{v: v, ts: p.config.getClock().MonotonicElapsed()}
	p.mu.Lock()
	if p.IsTerminated() {
		p.mu.Unlock()
		return infra.WrapErrorStack(ErrTerminated)
	}
	p.tail.next.Store(n)
	p.tail = n
	p.size++
	p.evictLocked(n.ts)
	subs := p.snapshotLocked()
	p.mu.Unlock()
	p.stats().IncreasePublishedCount()
	for _, s := range subs {
		s.drain()
	}
	return nil
}

func (p *xReplayProcessor[T]) tryPushValue(v T) error {
	return p.pushValue(v)
}

// evictLocked applies the count limit and ages out entries older than
// the window. Evicted nodes stay linked so lagging subscribers keep
// the entitlement they already hold; only newcomers start past them.
func (p *xReplayProcessor[T]) evictLocked(now time.Duration) {
	limit := p.config.replayLimit
	for limit > 0 && p.size > limit {
		p.head = p.head.next.Load()
		p.size--
		p.stats().IncreaseEvictedCount()
	}
	window := p.config.replayWindow
	if window <= 0 {
		return
	}
	for {
		next := p.head.next.Load()
		if next == nil || now-next.ts <= window {
			return
		}
		p.head = next
		p.size--
		p.stats().IncreaseEvictedCount()
	}
}

func (p *xReplayProcessor[T]) snapshotLocked() []*replaySubscription[T] {
	subs := make([]*replaySubscription[T], 0, len(p.subs))
	for _, s := range p.subs {
		subs = append(subs, s)
	}
	return subs
}

func (p *xReplayProcessor[T]) terminate(target processorState, err error) {
	if !p.moveToTerminal(target, err) {
		p.reportMisuse("terminal signal after termination, ignored")
		return
	}
	p.mu.Lock()
	subs := p.snapshotLocked()
	p.mu.Unlock()
	for _, s := range subs {
		s.drain()
	}
}

func (p *xReplayProcessor[T]) pushError(err error) {
	p.terminate(stateErrored, err)
}

func (p *xReplayProcessor[T]) pushComplete() {
	p.terminate(stateCompleted, nil)
}

func (p *xReplayProcessor[T]) OnSubscribe(sub Subscription) {
	p.setUpstream(sub)
	sub.Request(RequestUnbounded)
}

func (p *xReplayProcessor[T]) OnNext(v T) {
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

func (p *xReplayProcessor[T]) OnError(err error) {
	p.pushError(err)
}

func (p *xReplayProcessor[T]) OnComplete() {
	p.pushComplete()
}

func (p *xReplayProcessor[T]) AsSink(opts ...SinkOption[T]) (Sink[T], error) {
	return newXSink[T](p, &p.processorCore, opts...)
}
