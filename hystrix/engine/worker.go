package engine

import (
	"context"
	"time"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/mdc"
)

// workerContext takes deadline and cancellation from the submitting caller and
// values from the worker. Nothing ambient crosses the handoff unless the
// callable restores it.
type workerContext struct {
	caller context.Context
	values context.Context
}

func newWorkerContext(caller context.Context, store *mdc.Store) context.Context {
	return workerContext{
		caller: caller,
		values: mdc.WithStore(context.Background(), store),
	}
}

func (c workerContext) Deadline() (time.Time, bool) { return c.caller.Deadline() }

func (c workerContext) Done() <-chan struct{} { return c.caller.Done() }

func (c workerContext) Err() error { return c.caller.Err() }

func (c workerContext) Value(key any) any { return c.values.Value(key) }
