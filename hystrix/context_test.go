//go:build unit

package hystrix

import (
	"context"
	"testing"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerFromContext(t *testing.T) {
	t.Parallel()

	assert.IsType(t, &log.NopLogger{}, NewLoggerFromContext(context.Background()))
	assert.IsType(t, &log.NopLogger{}, NewLoggerFromContext(nil)) //nolint:staticcheck

	logger := log.NewGoLogger(nil, log.LevelInfo)
	ctx := ContextWithLogger(context.Background(), logger)

	assert.Same(t, logger, NewLoggerFromContext(ctx))
}

func TestContextHelpersDoNotShareState(t *testing.T) {
	t.Parallel()

	logger := log.NewGoLogger(nil, log.LevelInfo)

	parent := ContextWithHeaderID(context.Background(), "req-1")
	child := ContextWithLogger(parent, logger)

	assert.Equal(t, "req-1", HeaderIDFromContext(child))
	assert.Same(t, logger, NewLoggerFromContext(child))
	assert.IsType(t, &log.NopLogger{}, NewLoggerFromContext(parent))
}

func TestResolveTraceID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "req-1", ResolveTraceID(ContextWithHeaderID(context.Background(), "  req-1 ")))

	generated := ResolveTraceID(ContextWithHeaderID(context.Background(), "   "))
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	assert.NotEqual(t, ResolveTraceID(context.Background()), ResolveTraceID(context.Background()))
}
