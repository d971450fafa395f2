package runtime

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
)

// ErrPanic is wrapped by every error built from a recovered panic value.
var ErrPanic = errors.New("panic")

// PanicError converts a recovered value into an error wrapping ErrPanic.
// When the value is itself an error it stays reachable through errors.Is/As.
func PanicError(panicValue any) error {
	if err, ok := panicValue.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}

	return fmt.Errorf("%w: %v", ErrPanic, panicValue)
}

// RecoverAndLogWithContext recovers a panic, logs it with the stack trace and
// records it on the ctx span and the panic counter. Use it in defer statements
// of goroutines that must survive the panic.
//
//	go func() {
//	    defer runtime.RecoverAndLogWithContext(ctx, logger, "engine", "bulkhead_worker")
//	    // ...
//	}()
func RecoverAndLogWithContext(ctx context.Context, logger log.Logger, component, name string) {
	if r := recover(); r != nil {
		HandlePanicValue(ctx, logger, r, component, name)
	}
}

// HandlePanicValue processes a panic value that was already recovered by the
// caller. It does not call recover itself, so callers keep control of what
// happens next (return an error, re-panic).
func HandlePanicValue(ctx context.Context, logger log.Logger, panicValue any, component, name string) {
	if panicValue == nil {
		return
	}

	stack := debug.Stack()
	logPanicWithStack(ctx, logger, name, panicValue, stack)
	recordPanicMetric(ctx, component, name)
	RecordPanicToSpanWithComponent(ctx, panicValue, stack, component, name)
}

func logPanicWithStack(ctx context.Context, logger log.Logger, name string, panicValue any, stack []byte) {
	if logger == nil {
		return
	}

	logger.Log(ctx, log.LevelError, "panic recovered",
		log.String("source", name),
		log.Any("panic_value", panicValue),
		log.String("stack_trace", string(stack)),
	)
}
