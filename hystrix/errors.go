package hystrix

import "errors"

var (
	// ErrInvalidArgument wraps every construction failure of a GenericCommand.
	ErrInvalidArgument = errors.New("hystrix: invalid argument")
	// ErrEmptyTraceID indicates a blank trace id.
	ErrEmptyTraceID = errors.New("trace id cannot be blank")
	// ErrNilEngine indicates WithEngine(nil).
	ErrNilEngine = errors.New("engine cannot be nil")
	// ErrNilWork is returned by Executor when the unit of work is nil.
	ErrNilWork = errors.New("hystrix: work cannot be nil")
	// ErrAlreadyExecuted is returned when a Command is executed a second time.
	ErrAlreadyExecuted = errors.New("hystrix: command already executed")
	// ErrUnexpectedResult is returned when the engine hands back a value of the
	// wrong type, typically from a fallback.
	ErrUnexpectedResult = errors.New("hystrix: unexpected result type")
)
