package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrNilLogger indicates that NewManager was called without a logger.
	ErrNilLogger = errors.New("circuitbreaker: logger cannot be nil")
	// ErrInvalidConfig indicates that a breaker configuration is unusable.
	ErrInvalidConfig = errors.New("circuitbreaker: invalid config")
	// ErrBreakerNotFound is returned when a named breaker was never created.
	ErrBreakerNotFound = errors.New("circuitbreaker: breaker not found")
	// ErrOpenState is returned (wrapped) when the breaker rejects a call.
	ErrOpenState = gobreaker.ErrOpenState
	// ErrTooManyRequests is returned (wrapped) when a half-open breaker rejects a call.
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

// Manager manages circuit breakers by name.
type Manager interface {
	// GetOrCreate returns the existing breaker for name or creates one from config.
	GetOrCreate(name string, config Config) (CircuitBreaker, error)

	// Execute runs fn through the named breaker.
	Execute(name string, fn func() (any, error)) (any, error)

	// GetState returns the current state.
	GetState(name string) State

	// GetCounts returns the current counts for a breaker.
	GetCounts(name string) Counts

	// IsHealthy returns true if the breaker is closed.
	IsHealthy(name string) bool

	// Reset recreates the breaker in closed state with its stored config.
	Reset(name string)

	// RegisterStateChangeListener registers a listener for state changes.
	RegisterStateChangeListener(listener StateChangeListener)
}

// CircuitBreaker is a single named breaker.
type CircuitBreaker interface {
	Execute(fn func() (any, error)) (any, error)
	State() State
	Counts() Counts
}

// Config holds circuit breaker configuration.
type Config struct {
	MaxRequests         uint32        // Max requests in half-open state
	Interval            time.Duration // Cyclic period of the closed state for clearing counts
	Timeout             time.Duration // Open state duration before half-open
	ConsecutiveFailures uint32        // Consecutive failures to trigger open state
	FailureRatio        float64       // Failure ratio to trigger open (e.g., 0.5 for 50%)
	MinRequests         uint32        // Min requests before checking ratio
	// IsSuccessful classifies an error returned by the protected call. Nil
	// counts every non-nil error as a failure.
	IsSuccessful func(err error) bool
}

// Validate reports whether the config can build a breaker.
func (c Config) Validate() error {
	if c.FailureRatio < 0 || c.FailureRatio > 1 {
		return errors.Join(ErrInvalidConfig, errors.New("failure ratio must be within [0, 1]"))
	}

	if c.Interval < 0 || c.Timeout < 0 {
		return errors.Join(ErrInvalidConfig, errors.New("durations cannot be negative"))
	}

	return nil
}

// IsZero reports whether no field of the config is set.
func (c Config) IsZero() bool {
	return c.MaxRequests == 0 && c.Interval == 0 && c.Timeout == 0 &&
		c.ConsecutiveFailures == 0 && c.FailureRatio == 0 && c.MinRequests == 0 &&
		c.IsSuccessful == nil
}

// State represents circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Counts represents circuit breaker statistics.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

type circuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
}

func (cb *circuitBreaker) Execute(fn func() (any, error)) (any, error) {
	return cb.breaker.Execute(fn)
}

func (cb *circuitBreaker) State() State {
	return convertGobreakerState(cb.breaker.State())
}

func (cb *circuitBreaker) Counts() Counts {
	return convertGobreakerCounts(cb.breaker.Counts())
}

// HealthChecker performs periodic health checks and resets breakers of recovered groups.
type HealthChecker interface {
	// Register adds a group to health check.
	Register(name string, healthCheckFn HealthCheckFunc)

	// Start begins the health check loop in a separate goroutine.
	Start()

	// Stop stops the health checker and waits for the loop to exit.
	Stop()

	// GetHealthStatus returns the breaker state of every registered group.
	GetHealthStatus() map[string]string

	StateChangeListener
}

// HealthCheckFunc checks whether the dependency behind a breaker is reachable again.
type HealthCheckFunc func(ctx context.Context) error

// StateChangeListener is notified when a breaker changes state.
type StateChangeListener interface {
	OnStateChange(name string, from State, to State)
}

func convertGobreakerState(state gobreaker.State) State {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}

func convertGobreakerCounts(counts gobreaker.Counts) Counts {
	return Counts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}
