package stream

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/benz9527/xflux/lib/id"
	"github.com/benz9527/xflux/lib/xlog"
)

// processorCore is the state every processor variant embeds: the
// single-shot terminal latch, the stored terminal error, the optional
// upstream subscription and the sink ownership flag.
type processorCore[T any] struct {
	config    *xProcessorConfig[T]
	idGen     id.UUIDGen
	state     atomic.Int32
	termErr   atomic.Value // error
	sinkTaken atomic.Bool
	upstream  atomic.Value // Subscription
}

func newProcessorCore[T any](config *xProcessorConfig[T]) processorCore[T] {
	gen, err := id.MonotonicNonZeroID()
	if err != nil {
		panic(err)
	}
	return processorCore[T]{
		config: config,
		idGen:  gen,
	}
}

func (core *processorCore[T]) logger() xlog.XLogger {
	return core.config.getLogger()
}

func (core *processorCore[T]) stats() *streamStats {
	return core.config.getStats()
}

func (core *processorCore[T]) IsTerminated() bool {
	return core.state.Load() != stateActive
}

// moveToTerminal performs the exactly-once ACTIVE -> TERMINATED
// transition. Reports false when another signal won the race.
func (core *processorCore[T]) moveToTerminal(target processorState, err error) bool {
	if err != nil {
		core.termErr.Store(err)
	}
	return core.state.CompareAndSwap(stateActive, target)
}

func (core *processorCore[T]) terminalError() error {
	if err, ok := core.termErr.Load().(error); ok {
		return err
	}
	return nil
}

// replayTerminal re-delivers the stored terminal signal to a late
// subscriber. Administrative shutdown replays nothing.
func (core *processorCore[T]) replayTerminal(s *subscriptionBase[T]) {
	switch core.state.Load() {
	case stateErrored:
		s.deliverError(core.terminalError())
	case stateCompleted:
		s.deliverComplete()
	default:
	}
}

func (core *processorCore[T]) setUpstream(sub Subscription) {
	core.upstream.Store(sub)
}

func (core *processorCore[T]) cancelUpstream() {
	if sub, ok := core.upstream.Load().(Subscription); ok && sub != nil {
		sub.Cancel()
	}
}

// discard funnels every thrown-away value through the configured
// discard callback so callers can release attached resources.
func (core *processorCore[T]) discard(v T) {
	core.stats().IncreaseDroppedCount()
	if fn := core.config.discardFn; fn != nil {
		fn(v)
	}
}

// reportMisuse flags non-corrupting protocol violations, e.g. pushing
// after termination or bypassing an obtained sink.
func (core *processorCore[T]) reportMisuse(msg string) {
	core.logger().Warn(msg, zap.String("processor", core.config.getName()))
}

func (core *processorCore[T]) takeSink() bool {
	return core.sinkTaken.CompareAndSwap(false, true)
}

// sinkBypassed tells whether direct delivery-protocol calls arrive
// even though a sink facade has been handed out.
func (core *processorCore[T]) sinkBypassed() bool {
	return core.sinkTaken.Load()
}
