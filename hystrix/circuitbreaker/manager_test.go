//go:build unit

package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tripFastConfig() Config {
	return Config{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: 3,
		FailureRatio:        0.5,
		MinRequests:         10,
	}
}

func newTestManager(t *testing.T) Manager {
	t.Helper()

	m, err := NewManager(log.NewNop())
	require.NoError(t, err)

	return m
}

func TestNewManager_NilLogger(t *testing.T) {
	t.Parallel()

	m, err := NewManager(nil)

	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrNilLogger)
}

func TestManager_InitialState(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	_, err := m.GetOrCreate("orders", DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, StateClosed, m.GetState("orders"))
	assert.True(t, m.IsHealthy("orders"))
	assert.Equal(t, StateUnknown, m.GetState("missing"))
}

func TestManager_GetOrCreateReturnsSameBreaker(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	first, err := m.GetOrCreate("orders", tripFastConfig())
	require.NoError(t, err)

	for range 3 {
		_, _ = first.Execute(func() (any, error) { return nil, errors.New("down") })
	}

	second, err := m.GetOrCreate("orders", DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, StateOpen, second.State())
}

func TestManager_GetOrCreateRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	cfg := DefaultConfig()
	cfg.FailureRatio = 1.5

	_, err := m.GetOrCreate("orders", cfg)

	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, StateUnknown, m.GetState("orders"))
}

func TestManager_OpenStateFastFails(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	_, err := m.GetOrCreate("orders", tripFastConfig())
	require.NoError(t, err)

	for range 3 {
		_, err := m.Execute("orders", func() (any, error) {
			return nil, errors.New("down")
		})
		require.Error(t, err)
	}

	assert.Equal(t, StateOpen, m.GetState("orders"))
	assert.False(t, m.IsHealthy("orders"))

	called := false
	_, err = m.Execute("orders", func() (any, error) {
		called = true

		return nil, nil
	})

	assert.False(t, called)
	assert.ErrorIs(t, err, ErrOpenState)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestManager_ExecutePassesResultAndError(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	_, err := m.GetOrCreate("orders", DefaultConfig())
	require.NoError(t, err)

	result, err := m.Execute("orders", func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	boom := errors.New("boom")
	_, err = m.Execute("orders", func() (any, error) { return nil, boom })
	assert.Same(t, boom, err)

	counts := m.GetCounts("orders")
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.TotalFailures)
}

func TestManager_ExecuteUnknownBreaker(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	_, err := m.Execute("missing", func() (any, error) { return nil, nil })

	assert.ErrorIs(t, err, ErrBreakerNotFound)
	assert.Equal(t, Counts{}, m.GetCounts("missing"))
}

func TestManager_IsSuccessfulClassifier(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	cfg := tripFastConfig()
	cfg.IsSuccessful = IgnoreCancellation

	_, err := m.GetOrCreate("orders", cfg)
	require.NoError(t, err)

	for range 5 {
		_, _ = m.Execute("orders", func() (any, error) { return nil, context.Canceled })
	}

	assert.Equal(t, StateClosed, m.GetState("orders"))
}

func TestManager_Reset(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	_, err := m.GetOrCreate("orders", tripFastConfig())
	require.NoError(t, err)

	for range 3 {
		_, _ = m.Execute("orders", func() (any, error) { return nil, errors.New("down") })
	}

	require.Equal(t, StateOpen, m.GetState("orders"))

	m.Reset("orders")

	assert.Equal(t, StateClosed, m.GetState("orders"))
	assert.Equal(t, Counts{}, m.GetCounts("orders"))

	m.Reset("missing")
	assert.Equal(t, StateUnknown, m.GetState("missing"))
}

type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingListener) OnStateChange(name string, from State, to State) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, name+":"+string(from)+"->"+string(to))
}

func (l *recordingListener) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.events...)
}

type panickingListener struct{}

func (panickingListener) OnStateChange(string, State, State) { panic("listener exploded") }

func TestManager_StateChangeListeners(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	listener := &recordingListener{}

	m.RegisterStateChangeListener(nil)
	m.RegisterStateChangeListener(panickingListener{})
	m.RegisterStateChangeListener(listener)

	_, err := m.GetOrCreate("orders", tripFastConfig())
	require.NoError(t, err)

	for range 3 {
		_, _ = m.Execute("orders", func() (any, error) { return nil, errors.New("down") })
	}

	assert.Eventually(t, func() bool {
		events := listener.snapshot()

		return len(events) == 1 && events[0] == "orders:closed->open"
	}, time.Second, 10*time.Millisecond)
}
