package stream

import (
	"sync"

	"github.com/benz9527/xflux/lib/xlog"
)

func newTestLogger() xlog.XLogger {
	return xlog.NewXLogger(xlog.WithXLoggerLevel(xlog.LogLevelError))
}

// recordingSubscriber captures everything a processor delivers so the
// tests can assert on exact sequences and terminal counts.
type recordingSubscriber[T any] struct {
	mu sync.Mutex

	sub       Subscription
	values    []T
	errs      []error
	completes int
	// autoRequest is issued inside OnSubscribe; 0 requests nothing.
	autoRequest int64
}

func newRecordingSubscriber[T any](autoRequest int64) *recordingSubscriber[T] {
	return &recordingSubscriber[T]{autoRequest: autoRequest}
}

func (r *recordingSubscriber[T]) OnSubscribe(sub Subscription) {
	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()
	if r.autoRequest != 0 {
		sub.Request(r.autoRequest)
	}
}

func (r *recordingSubscriber[T]) OnNext(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recordingSubscriber[T]) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingSubscriber[T]) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completes++
}

func (r *recordingSubscriber[T]) subscription() Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sub
}

func (r *recordingSubscriber[T]) snapshotValues() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

func (r *recordingSubscriber[T]) valueCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func (r *recordingSubscriber[T]) firstError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[0]
}

// terminalCount is the sum of error and complete signals; the protocol
// allows at most one.
func (r *recordingSubscriber[T]) terminalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs) + r.completes
}

func (r *recordingSubscriber[T]) completeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completes
}
