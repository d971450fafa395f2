package errgroup

import (
	"context"
	"sync"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/runtime"
)

// Group manages goroutines that share a cancellation context.
type Group struct {
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	errOnce   sync.Once
	err       error
	logger    log.Logger
	component string
}

// WithContext returns a new Group and its derived context. The context is
// canceled when a goroutine fails, when Stop is called or when Wait returns.
// component labels recovered panics.
func WithContext(ctx context.Context, logger log.Logger, component string) (*Group, context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	return &Group{
		ctx:       ctx,
		cancel:    cancel,
		logger:    log.OrNop(logger),
		component: component,
	}, ctx
}

// Go starts fn on a new goroutine with the group context. name identifies the
// goroutine in panic reports.
func (grp *Group) Go(name string, fn func(ctx context.Context) error) {
	grp.wg.Add(1)

	go func() {
		defer grp.wg.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				runtime.HandlePanicValue(grp.ctx, grp.logger, recovered, grp.component, name)
				grp.fail(runtime.PanicError(recovered))
			}
		}()

		if err := fn(grp.ctx); err != nil {
			grp.fail(err)
		}
	}()
}

func (grp *Group) fail(err error) {
	grp.errOnce.Do(func() {
		grp.err = err
		grp.cancel()
	})
}

// Wait blocks until every goroutine has returned, then cancels the group
// context and returns the first error.
func (grp *Group) Wait() error {
	grp.wg.Wait()
	grp.cancel()

	return grp.err
}

// Stop cancels the group context and waits for the goroutines to return.
func (grp *Group) Stop() error {
	grp.cancel()

	return grp.Wait()
}
