package engine

import "errors"

var (
	// ErrTimeout is returned when a callable does not finish within the setter timeout.
	ErrTimeout = errors.New("engine: command timed out")
	// ErrRejected is returned when every worker of the command group is busy.
	ErrRejected = errors.New("engine: bulkhead full, command rejected")
	// ErrEngineClosed is returned by Run after Close.
	ErrEngineClosed = errors.New("engine: closed")
	// ErrNilCallable is returned when Run receives a nil callable.
	ErrNilCallable = errors.New("engine: callable cannot be nil")
	// ErrInvalidSetter wraps every setter validation failure.
	ErrInvalidSetter = errors.New("engine: invalid setter")
	// ErrMissingGroupKey indicates a setter without a group key.
	ErrMissingGroupKey = errors.New("group key is required")
	// ErrNegativeTimeout indicates a setter with a negative timeout.
	ErrNegativeTimeout = errors.New("timeout cannot be negative")
	// ErrNegativeConcurrency indicates a setter with a negative worker count.
	ErrNegativeConcurrency = errors.New("max concurrent cannot be negative")
)
