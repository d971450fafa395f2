package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/runtime"
	"github.com/sony/gobreaker"
)

type manager struct {
	breakers  map[string]*gobreaker.CircuitBreaker
	configs   map[string]Config // kept so Reset can rebuild the breaker
	listeners []StateChangeListener
	mu        sync.RWMutex
	logger    log.Logger
}

// NewManager creates a new circuit breaker manager.
func NewManager(logger log.Logger) (Manager, error) {
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &manager{
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		configs:   make(map[string]Config),
		listeners: make([]StateChangeListener, 0),
		logger:    logger,
	}, nil
}

func (m *manager) GetOrCreate(name string, config Config) (CircuitBreaker, error) {
	m.mu.RLock()
	breaker, exists := m.breakers[name]
	m.mu.RUnlock()

	if exists {
		return &circuitBreaker{breaker: breaker}, nil
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("breaker %q: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if breaker, exists = m.breakers[name]; exists {
		return &circuitBreaker{breaker: breaker}, nil
	}

	breaker = gobreaker.NewCircuitBreaker(m.settings(name, config))
	m.breakers[name] = breaker
	m.configs[name] = config

	m.logger.Log(context.Background(), log.LevelInfo, "circuit breaker created", log.String("breaker", name))

	return &circuitBreaker{breaker: breaker}, nil
}

func (m *manager) settings(name string, config Config) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "command-group-" + name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return (config.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= config.ConsecutiveFailures) ||
				(counts.Requests >= config.MinRequests && config.FailureRatio > 0 && failureRatio >= config.FailureRatio)
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			m.handleStateChange(name, from, to)
		},
		IsSuccessful: config.IsSuccessful,
	}
}

func (m *manager) Execute(name string, fn func() (any, error)) (any, error) {
	m.mu.RLock()
	breaker, exists := m.breakers[name]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s (call GetOrCreate first)", ErrBreakerNotFound, name)
	}

	result, err := breaker.Execute(fn)
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			m.logger.Log(context.Background(), log.LevelWarn, "circuit breaker open, request rejected", log.String("breaker", name))

			return nil, fmt.Errorf("command group %s is unavailable (circuit breaker open): %w", name, err)
		case errors.Is(err, gobreaker.ErrTooManyRequests):
			m.logger.Log(context.Background(), log.LevelWarn, "circuit breaker half-open, too many trial requests", log.String("breaker", name))

			return nil, fmt.Errorf("command group %s is recovering (too many requests): %w", name, err)
		}
	}

	return result, err
}

func (m *manager) GetState(name string) State {
	m.mu.RLock()
	breaker, exists := m.breakers[name]
	m.mu.RUnlock()

	if !exists {
		return StateUnknown
	}

	return convertGobreakerState(breaker.State())
}

func (m *manager) GetCounts(name string) Counts {
	m.mu.RLock()
	breaker, exists := m.breakers[name]
	m.mu.RUnlock()

	if !exists {
		return Counts{}
	}

	return convertGobreakerCounts(breaker.Counts())
}

// IsHealthy reports whether the breaker is closed. Open and half-open both
// need the health checker.
func (m *manager) IsHealthy(name string) bool {
	state := m.GetState(name)
	healthy := state == StateClosed

	m.logger.Log(context.Background(), log.LevelDebug, "circuit breaker health check",
		log.String("breaker", name),
		log.String("state", string(state)),
		log.Bool("healthy", healthy),
	)

	return healthy
}

func (m *manager) Reset(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.breakers[name]; !exists {
		return
	}

	config, ok := m.configs[name]
	if !ok {
		m.logger.Log(context.Background(), log.LevelWarn, "no stored config for circuit breaker, dropping it", log.String("breaker", name))
		delete(m.breakers, name)

		return
	}

	m.breakers[name] = gobreaker.NewCircuitBreaker(m.settings(name, config))

	m.logger.Log(context.Background(), log.LevelInfo, "circuit breaker reset", log.String("breaker", name))
}

// RegisterStateChangeListener registers a listener for state change notifications.
func (m *manager) RegisterStateChangeListener(listener StateChangeListener) {
	if listener == nil {
		m.logger.Log(context.Background(), log.LevelWarn, "ignoring nil state change listener")

		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, listener)
}

// handleStateChange is called by gobreaker while it holds its own lock, so
// listeners are notified on separate goroutines.
func (m *manager) handleStateChange(name string, from gobreaker.State, to gobreaker.State) {
	ctx := context.Background()
	level := log.LevelInfo

	if to == gobreaker.StateOpen {
		level = log.LevelError
	}

	m.logger.Log(ctx, level, "circuit breaker state changed",
		log.String("breaker", name),
		log.String("from", from.String()),
		log.String("to", to.String()),
	)

	fromState := convertGobreakerState(from)
	toState := convertGobreakerState(to)

	m.mu.RLock()
	listeners := make([]StateChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, listener := range listeners {
		go func(l StateChangeListener) {
			defer runtime.RecoverAndLogWithContext(ctx, m.logger, "circuitbreaker", "state_change_listener")

			l.OnStateChange(name, fromState, toState)
		}(listener)
	}
}
