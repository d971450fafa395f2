package hystrix

import (
	"context"
	"strings"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/google/uuid"
)

type customContextKey string

// CustomContextKey is the context key used to store CustomContextKeyValue.
var CustomContextKey = customContextKey("hystrix_context")

// CustomContextKeyValue holds the request-scoped facilities commands read from ctx.
type CustomContextKeyValue struct {
	HeaderID string
	Logger   log.Logger
}

func valuesFrom(ctx context.Context) CustomContextKeyValue {
	if ctx == nil {
		return CustomContextKeyValue{}
	}

	if values, ok := ctx.Value(CustomContextKey).(*CustomContextKeyValue); ok && values != nil {
		return *values
	}

	return CustomContextKeyValue{}
}

// ContextWithLogger returns a context carrying logger.
func ContextWithLogger(ctx context.Context, logger log.Logger) context.Context {
	values := valuesFrom(ctx)
	values.Logger = logger

	return context.WithValue(ctx, CustomContextKey, &values)
}

// NewLoggerFromContext returns the logger of ctx, or a NopLogger.
//
//nolint:ireturn
func NewLoggerFromContext(ctx context.Context) log.Logger {
	return log.OrNop(valuesFrom(ctx).Logger)
}

// ContextWithHeaderID returns a context carrying the request correlation id,
// usually taken from an ingress header.
func ContextWithHeaderID(ctx context.Context, headerID string) context.Context {
	values := valuesFrom(ctx)
	values.HeaderID = headerID

	return context.WithValue(ctx, CustomContextKey, &values)
}

// HeaderIDFromContext returns the trimmed correlation id of ctx, or "".
func HeaderIDFromContext(ctx context.Context) string {
	return strings.TrimSpace(valuesFrom(ctx).HeaderID)
}

// ResolveTraceID returns the correlation id of ctx, generating a UUID when
// ctx has none.
func ResolveTraceID(ctx context.Context) string {
	if id := HeaderIDFromContext(ctx); id != "" {
		return id
	}

	return uuid.New().String()
}
