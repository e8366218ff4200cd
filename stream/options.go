package stream

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/benz9527/xflux/lib/hrtime"
	"github.com/benz9527/xflux/lib/ipc"
	"github.com/benz9527/xflux/lib/xlog"
)

const (
	defaultBufferCapacity     = 256
	defaultRingCapacity       = 1024
	defaultMinRingCapacity    = 2
	defaultSleepWaitInterval  = 20 * time.Microsecond
	defaultProcessorNameStub  = "xflux"
	defaultReplayLimitNoBound = 0
)

type xProcessorConfig[T any] struct {
	name             string
	bufferCapacity   uint64
	unboundedBuffer  bool
	discardFn        func(T)
	autoCancel       bool
	replayLimit      int
	replayWindow     time.Duration
	clock            hrtime.Clock
	executor         Executor
	consumerStrategy ipc.BlockStrategy
	producerStrategy ipc.BlockStrategy
	logger           xlog.XLogger
	enableStats      bool
	stats            *streamStats
	isValueChecked   *atomic.Bool
}

func newXProcessorConfig[T any](opts ...XProcessorOption[T]) *xProcessorConfig[T] {
	config := &xProcessorConfig[T]{
		autoCancel: true,
	}
	for _, o := range opts {
		if o != nil {
			o(config)
		}
	}
	config.validate()
	return config
}

func (config *xProcessorConfig[T]) validate() {
	config.isValueChecked = &atomic.Bool{}
	if config.bufferCapacity > 0 && config.unboundedBuffer {
		slog.Warn("[stream options] unbounded buffer overrides the bounded capacity",
			"capacity", config.bufferCapacity)
		config.bufferCapacity = 0
	}
	config.isValueChecked.Store(true)
	if config.enableStats {
		config.stats = newStreamStats(config.getName())
	}
}

func (config *xProcessorConfig[T]) checked() {
	if config.isValueChecked == nil || !config.isValueChecked.Load() {
		panic("value unchecked")
	}
}

func (config *xProcessorConfig[T]) getName() string {
	if config.name == "" {
		return defaultProcessorNameStub
	}
	return config.name
}

func (config *xProcessorConfig[T]) getBufferCapacity() uint64 {
	config.checked()
	if config.bufferCapacity == 0 {
		return defaultBufferCapacity
	}
	return config.bufferCapacity
}

func (config *xProcessorConfig[T]) getRingCapacity() uint64 {
	config.checked()
	if config.bufferCapacity == 0 {
		return defaultRingCapacity
	}
	if config.bufferCapacity < defaultMinRingCapacity {
		return defaultMinRingCapacity
	}
	return config.bufferCapacity
}

func (config *xProcessorConfig[T]) getClock() hrtime.Clock {
	config.checked()
	if config.clock == nil {
		return hrtime.SdkClock
	}
	return config.clock
}

func (config *xProcessorConfig[T]) getConsumerStrategy() ipc.BlockStrategy {
	config.checked()
	if config.consumerStrategy == nil {
		return ipc.NewXChanBlockStrategy()
	}
	return config.consumerStrategy
}

func (config *xProcessorConfig[T]) getProducerStrategy() ipc.BlockStrategy {
	config.checked()
	if config.producerStrategy == nil {
		return ipc.NewXChanBlockStrategy()
	}
	return config.producerStrategy
}

func (config *xProcessorConfig[T]) getExecutor() (Executor, error) {
	config.checked()
	if config.executor == nil {
		return NewAntsExecutor(-1, config.getLogger())
	}
	return config.executor, nil
}

func (config *xProcessorConfig[T]) getLogger() xlog.XLogger {
	config.checked()
	if config.logger == nil {
		return defaultLogger()
	}
	return config.logger
}

func (config *xProcessorConfig[T]) getStats() *streamStats {
	return config.stats
}

var pkgLogger atomic.Pointer[xlog.XLogger]

func defaultLogger() xlog.XLogger {
	if l := pkgLogger.Load(); l != nil {
		return *l
	}
	l := xlog.NewXLogger(xlog.WithXLoggerLevel(xlog.LogLevelWarn))
	pkgLogger.CompareAndSwap(nil, &l)
	return *pkgLogger.Load()
}

type XProcessorOption[T any] func(config *xProcessorConfig[T])

func WithProcessorName[T any](name string) XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		if name == "" {
			panic("processor name must not be empty")
		}
		config.name = name
	}
}

// WithBufferCapacity bounds the internal buffer (unicast, emitter) or
// sizes the ring (topic, work-queue; rounded up to a power of 2).
func WithBufferCapacity[T any](capacity uint64) XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		if capacity < 1 {
			panic("buffer capacity must be positive")
		}
		config.bufferCapacity = capacity
	}
}

// WithUnboundedBuffer lets the buffer grow without limit; memory is
// the only backstop then.
func WithUnboundedBuffer[T any]() XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		config.unboundedBuffer = true
	}
}

// WithDiscardCallback observes every value the processor drops:
// bounded-buffer rejections and queued values thrown away on cancel.
func WithDiscardCallback[T any](fn func(v T)) XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		config.discardFn = fn
	}
}

// WithAutoCancel controls whether the processor shuts down once its
// last subscriber cancels. Defaults to true.
func WithAutoCancel[T any](autoCancel bool) XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		config.autoCancel = autoCancel
	}
}

// WithReplayLimit keeps at most limit values of history; 0 keeps all.
func WithReplayLimit[T any](limit int) XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		if limit < 0 {
			panic("replay limit must not be negative")
		}
		config.replayLimit = limit
	}
}

// WithReplayWindow drops history older than window at replay time;
// 0 keeps history regardless of age.
func WithReplayWindow[T any](window time.Duration) XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		if window < 0 {
			panic("replay window must not be negative")
		}
		config.replayWindow = window
	}
}

func WithClock[T any](clock hrtime.Clock) XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		if clock == nil {
			panic("clock must not be nil")
		}
		config.clock = clock
	}
}

// WithExecutor supplies the execution resource that delivery
// goroutines of the ring-buffer processors are spawned on.
func WithExecutor[T any](executor Executor) XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		if executor == nil {
			panic("executor must not be nil")
		}
		config.executor = executor
	}
}

func WithConsumerBlockStrategy[T any](strategy ipc.BlockStrategy) XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		if strategy == nil {
			panic(fmt.Sprintf("nil consumer block strategy for processor %q", config.name))
		}
		config.consumerStrategy = strategy
	}
}

func WithProducerBlockStrategy[T any](strategy ipc.BlockStrategy) XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		if strategy == nil {
			panic(fmt.Sprintf("nil producer block strategy for processor %q", config.name))
		}
		config.producerStrategy = strategy
	}
}

func WithLogger[T any](logger xlog.XLogger) XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		if logger == nil {
			panic("logger must not be nil")
		}
		config.logger = logger
	}
}

// WithStreamStats turns on the otel counters for this processor.
func WithStreamStats[T any]() XProcessorOption[T] {
	return func(config *xProcessorConfig[T]) {
		config.enableStats = true
	}
}
