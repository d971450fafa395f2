package circuitbreaker

import (
	"context"
	"errors"
	"time"
)

// DefaultConfig provides balanced settings for most command groups.
func DefaultConfig() Config {
	return Config{
		MaxRequests:         3,
		Interval:            2 * time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 15,
		FailureRatio:        0.5,
		MinRequests:         10,
	}
}

// AggressiveConfig trips fast. Use it for groups that must fail early.
func AggressiveConfig() Config {
	return Config{
		MaxRequests:         2,
		Interval:            1 * time.Minute,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
		FailureRatio:        0.4,
		MinRequests:         5,
	}
}

// ConservativeConfig tolerates more failures before opening.
func ConservativeConfig() Config {
	return Config{
		MaxRequests:         5,
		Interval:            5 * time.Minute,
		Timeout:             60 * time.Second,
		ConsecutiveFailures: 25,
		FailureRatio:        0.6,
		MinRequests:         20,
	}
}

// HTTPServiceConfig suits commands that call external HTTP APIs.
func HTTPServiceConfig() Config {
	return Config{
		MaxRequests:         3,
		Interval:            2 * time.Minute,
		Timeout:             10 * time.Second, // Shorter for HTTP
		ConsecutiveFailures: 5,
		FailureRatio:        0.5,
		MinRequests:         10,
		IsSuccessful:        IgnoreCancellation,
	}
}

// DatabaseConfig suits commands wrapping database calls, where short network
// blips should not trip the breaker.
func DatabaseConfig() Config {
	return Config{
		MaxRequests:         5,
		Interval:            3 * time.Minute,
		Timeout:             45 * time.Second,
		ConsecutiveFailures: 20,
		FailureRatio:        0.6,
		MinRequests:         15,
		IsSuccessful:        IgnoreCancellation,
	}
}

// IgnoreCancellation does not count a caller's own cancellation against the
// dependency.
func IgnoreCancellation(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
