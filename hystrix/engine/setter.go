package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/circuitbreaker"
)

const (
	// DefaultTimeout bounds a callable when the setter leaves Timeout unset.
	DefaultTimeout = time.Second
	// DefaultMaxConcurrent is the bulkhead size when the setter leaves MaxConcurrent unset.
	DefaultMaxConcurrent = 10
)

// FallbackFunc produces a result when the primary callable failed, timed out,
// was rejected or short-circuited. cause is the primary failure.
type FallbackFunc func(ctx context.Context, cause error) (any, error)

// Setter configures how a command runs. Commands in the same group share one
// breaker and one bulkhead; the first setter seen for a group sizes them.
type Setter struct {
	GroupKey      string
	CommandKey    string
	Timeout       time.Duration
	MaxConcurrent int
	Breaker       circuitbreaker.Config
	Fallback      FallbackFunc
}

// WithGroupKey starts a setter for group.
func WithGroupKey(group string) Setter {
	return Setter{GroupKey: group}
}

// AndCommandKey names the command inside its group.
func (s Setter) AndCommandKey(key string) Setter {
	s.CommandKey = key

	return s
}

// AndTimeout sets how long the caller waits for the callable.
func (s Setter) AndTimeout(timeout time.Duration) Setter {
	s.Timeout = timeout

	return s
}

// AndMaxConcurrent sets the number of workers of the group bulkhead.
func (s Setter) AndMaxConcurrent(n int) Setter {
	s.MaxConcurrent = n

	return s
}

// AndBreakerConfig sets the circuit breaker configuration of the group.
func (s Setter) AndBreakerConfig(cfg circuitbreaker.Config) Setter {
	s.Breaker = cfg

	return s
}

// AndFallback sets the fallback of the command.
func (s Setter) AndFallback(fn FallbackFunc) Setter {
	s.Fallback = fn

	return s
}

// Validate reports whether the setter can run a command. Zero values are
// valid; WithDefaults fills them.
func (s Setter) Validate() error {
	if s.GroupKey == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSetter, ErrMissingGroupKey)
	}

	if s.Timeout < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSetter, ErrNegativeTimeout)
	}

	if s.MaxConcurrent < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSetter, ErrNegativeConcurrency)
	}

	if err := s.Breaker.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSetter, err)
	}

	return nil
}

// WithDefaults returns a copy with unset fields filled. The command key
// defaults to the group key.
func (s Setter) WithDefaults() Setter {
	if s.CommandKey == "" {
		s.CommandKey = s.GroupKey
	}

	if s.Timeout == 0 {
		s.Timeout = DefaultTimeout
	}

	if s.MaxConcurrent == 0 {
		s.MaxConcurrent = DefaultMaxConcurrent
	}

	if s.Breaker.IsZero() {
		s.Breaker = circuitbreaker.DefaultConfig()
	}

	return s
}
