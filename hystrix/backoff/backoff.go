package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

const maxShift = 62

// Exponential returns base * 2^attempt, saturating at math.MaxInt64. Negative
// attempts count as 0 and a non-positive base yields 0.
func Exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	attempt = min(max(attempt, 0), maxShift)
	multiplier := int64(1) << attempt

	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}

	return base * time.Duration(multiplier)
}

// Capped returns Exponential(base, attempt) bounded by ceiling. A non-positive
// ceiling means unbounded.
func Capped(base, ceiling time.Duration, attempt int) time.Duration {
	delay := Exponential(base, attempt)
	if ceiling > 0 && delay > ceiling {
		return ceiling
	}

	return delay
}

// FullJitter returns a random duration in [0, delay).
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}

	return time.Duration(rand.Int64N(int64(delay))) // #nosec G404 -- scheduling jitter, not security sensitive
}

// EqualJitter returns a random duration in [delay/2, delay), so the wait never
// collapses to zero.
func EqualJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}

	half := delay / 2

	return half + FullJitter(delay-half)
}
