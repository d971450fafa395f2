package circuitbreaker

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/backoff"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
)

var (
	// ErrInvalidHealthCheckInterval indicates that the health check interval must be positive.
	ErrInvalidHealthCheckInterval = errors.New("circuitbreaker: health check interval must be positive")
	// ErrInvalidHealthCheckTimeout indicates that the health check timeout must be positive.
	ErrInvalidHealthCheckTimeout = errors.New("circuitbreaker: health check timeout must be positive")
	// ErrNilManager indicates that the health checker was built without a manager.
	ErrNilManager = errors.New("circuitbreaker: manager cannot be nil")
)

const (
	immediateCheckBuffer = 10
	// maxBackoffIntervals caps the delay between probes of a failing group.
	maxBackoffIntervals = 16
)

type healthChecker struct {
	manager        Manager
	groups         map[string]HealthCheckFunc
	failures       map[string]int
	nextProbe      map[string]time.Time
	interval       time.Duration
	checkTimeout   time.Duration
	logger         log.Logger
	stopChan       chan struct{}
	stopOnce       sync.Once
	immediateCheck chan string
	wg             sync.WaitGroup
	mu             sync.RWMutex
}

// NewHealthChecker creates a health checker that probes every registered group
// whose breaker is not closed and resets it once the probe succeeds. Probes run
// every interval with checkTimeout; a group that keeps failing is probed less
// often, with jittered exponential backoff up to 16 intervals.
func NewHealthChecker(manager Manager, interval, checkTimeout time.Duration, logger log.Logger) (HealthChecker, error) {
	if manager == nil {
		return nil, ErrNilManager
	}

	if interval <= 0 {
		return nil, ErrInvalidHealthCheckInterval
	}

	if checkTimeout <= 0 {
		return nil, ErrInvalidHealthCheckTimeout
	}

	return &healthChecker{
		manager:        manager,
		groups:         make(map[string]HealthCheckFunc),
		failures:       make(map[string]int),
		nextProbe:      make(map[string]time.Time),
		interval:       interval,
		checkTimeout:   checkTimeout,
		logger:         log.OrNop(logger),
		stopChan:       make(chan struct{}),
		immediateCheck: make(chan string, immediateCheckBuffer),
	}, nil
}

func (hc *healthChecker) Register(name string, healthCheckFn HealthCheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.groups[name] = healthCheckFn
	hc.logger.Log(context.Background(), log.LevelInfo, "health check registered", log.String("breaker", name))
}

func (hc *healthChecker) Start() {
	hc.wg.Add(1)

	go hc.loop()

	hc.logger.Log(context.Background(), log.LevelInfo, "health checker started", log.String("interval", hc.interval.String()))
}

// Stop is safe to call more than once.
func (hc *healthChecker) Stop() {
	hc.stopOnce.Do(func() { close(hc.stopChan) })
	hc.wg.Wait()
}

func (hc *healthChecker) loop() {
	defer hc.wg.Done()

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hc.checkAll()
		case name := <-hc.immediateCheck:
			hc.checkOne(name)
		case <-hc.stopChan:
			return
		}
	}
}

func (hc *healthChecker) checkAll() {
	hc.mu.RLock()
	groups := make(map[string]HealthCheckFunc, len(hc.groups))
	maps.Copy(groups, hc.groups)
	hc.mu.RUnlock()

	for name, fn := range groups {
		hc.heal(name, fn)
	}
}

func (hc *healthChecker) checkOne(name string) {
	hc.mu.RLock()
	fn, exists := hc.groups[name]
	hc.mu.RUnlock()

	if !exists {
		hc.logger.Log(context.Background(), log.LevelDebug, "no health check registered", log.String("breaker", name))

		return
	}

	hc.heal(name, fn)
}

// heal probes a group that is not closed and resets its breaker on success.
func (hc *healthChecker) heal(name string, fn HealthCheckFunc) bool {
	if hc.manager.IsHealthy(name) {
		hc.clearBackoff(name)

		return false
	}

	if !hc.due(name) {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), hc.checkTimeout)
	err := fn(ctx)

	cancel()

	if err != nil {
		delay := hc.backOff(name)

		hc.logger.Log(ctx, log.LevelWarn, "command group still unhealthy",
			log.String("breaker", name),
			log.String("next_probe_in", delay.String()),
			log.Err(err),
		)

		return false
	}

	hc.logger.Log(ctx, log.LevelInfo, "command group recovered, resetting circuit breaker", log.String("breaker", name))
	hc.clearBackoff(name)
	hc.manager.Reset(name)

	return true
}

func (hc *healthChecker) due(name string) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	next, ok := hc.nextProbe[name]

	return !ok || !time.Now().Before(next)
}

func (hc *healthChecker) backOff(name string) time.Duration {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	attempt := hc.failures[name]
	hc.failures[name] = attempt + 1

	delay := backoff.EqualJitter(backoff.Capped(hc.interval, maxBackoffIntervals*hc.interval, attempt))
	hc.nextProbe[name] = time.Now().Add(delay)

	return delay
}

func (hc *healthChecker) clearBackoff(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	delete(hc.failures, name)
	delete(hc.nextProbe, name)
}

func (hc *healthChecker) GetHealthStatus() map[string]string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := make(map[string]string, len(hc.groups))

	for name := range hc.groups {
		status[name] = string(hc.manager.GetState(name))
	}

	return status
}

// OnStateChange schedules an immediate probe when a breaker opens.
func (hc *healthChecker) OnStateChange(name string, _ State, to State) {
	if to != StateOpen {
		return
	}

	hc.clearBackoff(name)

	select {
	case hc.immediateCheck <- name:
	default:
		hc.logger.Log(context.Background(), log.LevelWarn, "immediate health check queue full, waiting for next interval",
			log.String("breaker", name))
	}
}
