package engine

import (
	"context"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/mdc"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/runtime"
)

// InlineEngine runs callables on the calling goroutine, without a breaker or a
// bulkhead. The setter timeout is applied to ctx, so it only stops callables
// that watch ctx.
type InlineEngine struct {
	// Store, when set, is the logging context of every callable, the way a
	// pooled worker reuses its own store. Otherwise callables see the store of ctx.
	Store  *mdc.Store
	Logger log.Logger
}

var _ Engine = InlineEngine{}

func (e InlineEngine) Run(ctx context.Context, setter Setter, call Callable) (any, error) {
	if call == nil {
		return nil, ErrNilCallable
	}

	if err := setter.Validate(); err != nil {
		return nil, err
	}

	setter = setter.WithDefaults()

	if ctx == nil {
		ctx = context.Background()
	}

	if e.Store != nil {
		ctx = mdc.WithStore(ctx, e.Store)
	}

	runCtx, cancel := context.WithTimeout(ctx, setter.Timeout)
	defer cancel()

	result, err := e.call(runCtx, call)
	if err != nil && setter.Fallback != nil {
		return setter.Fallback(ctx, err)
	}

	return result, err
}

func (e InlineEngine) call(ctx context.Context, call Callable) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			runtime.HandlePanicValue(ctx, log.OrNop(e.Logger), r, "engine", "inline")

			result, err = nil, runtime.PanicError(r)
		}
	}()

	return call(ctx)
}
