package hystrix

import (
	"sync"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/engine"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/internal/nilcheck"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/opentelemetry"
)

type options struct {
	engine    engine.Engine
	engineSet bool
	scopes    opentelemetry.ScopeManager
	logger    log.Logger
}

// Option configures a GenericCommand.
type Option func(*options)

// WithEngine sets the engine commands are submitted to. The default is a
// process-wide BreakerEngine.
func WithEngine(e engine.Engine) Option {
	return func(o *options) {
		o.engine = e
		o.engineSet = true
	}
}

// WithScopeManager sets how spans are read and activated. The default is
// OpenTelemetry's context-carried span.
func WithScopeManager(scopes opentelemetry.ScopeManager) Option {
	return func(o *options) {
		if !nilcheck.Interface(scopes) {
			o.scopes = scopes
		}
	}
}

// WithLogger sets the logger for context restoration failures. Without it the
// logger of the submitting context is used.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if !nilcheck.Interface(logger) {
			o.logger = logger
		}
	}
}

var sharedEngine = sync.OnceValues(func() (*engine.BreakerEngine, error) {
	return engine.NewBreakerEngine()
})
