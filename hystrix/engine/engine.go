package engine

import (
	"context"
)

// Callable is the unit an Engine runs. ctx is the worker context: it carries
// the caller's deadline and cancellation and the worker's own values.
type Callable func(ctx context.Context) (any, error)

// Engine runs a callable at most once under the policy of setter and reports
// its result, failure, timeout or rejection.
type Engine interface {
	Run(ctx context.Context, setter Setter, call Callable) (any, error)
}
