package stream

import (
	"errors"

	"github.com/panjf2000/ants/v2"

	"github.com/benz9527/xflux/lib/infra"
	"github.com/benz9527/xflux/lib/xlog"
)

var _ Executor = (*antsExecutor)(nil)

// antsExecutor backs delivery goroutines with an ants pool. The pool
// is non-blocking so an exhausted pool surfaces immediately as a
// capacity error instead of parking the registering goroutine.
type antsExecutor struct {
	pool *ants.Pool
}

// NewAntsExecutor builds an executor with at most size concurrent
// delivery goroutines. size <= 0 means unbounded.
func NewAntsExecutor(size int, logger xlog.XLogger) (Executor, error) {
	opts := []ants.Option{
		ants.WithNonblocking(true),
	}
	if logger != nil {
		opts = append(opts, ants.WithLogger(xlog.NewAntsXLogger(logger)))
	}
	if size <= 0 {
		size = -1
	}
	pool, err := ants.NewPool(size, opts...)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	return &antsExecutor{pool: pool}, nil
}

func (e *antsExecutor) Submit(task func()) error {
	if err := e.pool.Submit(task); err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			return ErrCapacityExceeded
		}
		return infra.WrapErrorStack(err)
	}
	return nil
}

func (e *antsExecutor) MaxConcurrency() int {
	return e.pool.Cap()
}

func (e *antsExecutor) Running() int {
	return e.pool.Running()
}

func (e *antsExecutor) Release() {
	e.pool.Release()
}
