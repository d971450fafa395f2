// Package hystrix wraps units of work handed to a circuit-breaker execution
// engine so that the caller's logging context and active trace span follow the
// work onto the worker that runs it.
//
// A GenericCommand captures nothing by itself. Executor snapshots the logging
// context (package mdc) and the active span of the submitting context, and
// returns a single-shot Command. When the engine runs the command's callable on
// a worker, the snapshot is installed on that worker's store, the span is
// activated, and the trace id is written under the reserved TRACE-ID key. The
// span scope is closed and TRACE-ID removed on every exit path, including
// failures, timeouts and panics.
//
// Typical usage:
//
//	setter := engine.WithGroupKey("payments").AndCommandKey("authorize")
//
//	cmd, err := hystrix.NewGenericCommand[Receipt](setter, traceID)
//	if err != nil {
//	    return err
//	}
//
//	exec, err := cmd.Executor(ctx, hystrix.WorkFunc[Receipt](authorize))
//	if err != nil {
//	    return err
//	}
//
//	receipt, err := exec.Execute(ctx)
package hystrix
