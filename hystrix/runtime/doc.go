// Package runtime recovers panics raised on engine workers and reports them
// through logs, span events and the panic counter.
package runtime
