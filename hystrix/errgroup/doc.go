// Package errgroup supervises named goroutines that share a cancellation context.
//
// The first goroutine error cancels the group context and is returned by Wait.
// Recovered panics are logged, recorded on the span and panic counter, and
// converted into errors wrapping runtime.ErrPanic. The engine runs its
// bulkhead workers in a Group.
package errgroup
