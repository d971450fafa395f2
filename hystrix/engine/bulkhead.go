package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/errgroup"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/mdc"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/opentelemetry/metrics"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/runtime"
)

type result struct {
	value any
	err   error
}

type task struct {
	ctx  context.Context
	call Callable
	done chan result
}

// bulkhead is a fixed set of long-lived workers for one command group. A
// task is admitted only when a slot is free; each worker keeps the same
// logging context store for its whole life.
type bulkhead struct {
	group    string
	slots    chan struct{}
	tasks    chan *task
	stores   []*mdc.Store
	workers  *errgroup.Group
	stopped  context.Context
	inFlight atomic.Int64
	logger   log.Logger
	metrics  *metrics.MetricsFactory
}

func newBulkhead(group string, size int, logger log.Logger, factory *metrics.MetricsFactory) *bulkhead {
	workers, stopped := errgroup.WithContext(context.Background(), logger, "engine")

	b := &bulkhead{
		group:   group,
		slots:   make(chan struct{}, size),
		tasks:   make(chan *task, size),
		stores:  make([]*mdc.Store, 0, size),
		workers: workers,
		stopped: stopped,
		logger:  logger,
		metrics: factory,
	}

	for range size {
		store := mdc.NewStore()
		b.stores = append(b.stores, store)

		workers.Go("bulkhead_worker", func(stop context.Context) error {
			b.work(stop, store)

			return nil
		})
	}

	return b
}

func (b *bulkhead) work(stop context.Context, store *mdc.Store) {
	for {
		select {
		case <-stop.Done():
			return
		case t := <-b.tasks:
			out := b.execute(t, store)
			<-b.slots
			t.done <- out
		}
	}
}

func (b *bulkhead) execute(t *task, store *mdc.Store) (out result) {
	ctx := newWorkerContext(t.ctx, store)

	b.metrics.RecordInFlight(ctx, b.group, b.inFlight.Add(1))

	defer func() {
		b.metrics.RecordInFlight(ctx, b.group, b.inFlight.Add(-1))

		if r := recover(); r != nil {
			runtime.HandlePanicValue(ctx, b.logger, r, "engine", "bulkhead_worker")

			out = result{err: runtime.PanicError(r)}
		}
	}()

	value, err := t.call(ctx)

	return result{value: value, err: err}
}

// submit hands call to a free worker and waits for it, for the timeout or for
// ctx. A caller that stops waiting leaves the worker busy until call returns.
func (b *bulkhead) submit(ctx context.Context, timeout time.Duration, call Callable) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case b.slots <- struct{}{}:
	default:
		return nil, fmt.Errorf("%w: group %s", ErrRejected, b.group)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t := &task{ctx: runCtx, call: call, done: make(chan result, 1)}
	b.tasks <- t

	select {
	case out := <-t.done:
		return out.value, out.err
	case <-b.stopped.Done():
		return nil, ErrEngineClosed
	case <-runCtx.Done():
		select {
		case out := <-t.done:
			return out.value, out.err
		default:
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

// idle reports whether no callable is running.
func (b *bulkhead) idle() bool {
	return len(b.slots) == 0
}

func (b *bulkhead) close() error {
	return b.workers.Stop()
}
