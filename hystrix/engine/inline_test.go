//go:build unit

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/mdc"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineEngine_RunsOnCallerContext(t *testing.T) {
	t.Parallel()

	ctx, store := mdc.Ensure(context.Background())
	store.Put("user", "42")

	value, err := InlineEngine{}.Run(ctx, WithGroupKey("g"), func(ctx context.Context) (any, error) {
		v, _ := mdc.FromContext(ctx).Get("user")

		return v, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "42", value)
}

func TestInlineEngine_UsesFixedStore(t *testing.T) {
	t.Parallel()

	workerStore := mdc.NewStore()

	_, err := InlineEngine{Store: workerStore}.Run(context.Background(), WithGroupKey("g"), func(ctx context.Context) (any, error) {
		assert.Same(t, workerStore, mdc.FromContext(ctx))
		require.NoError(t, mdc.Put(ctx, "seen", "yes"))

		return nil, nil
	})

	require.NoError(t, err)

	v, ok := workerStore.Get("seen")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
}

func TestInlineEngine_AppliesTimeoutToContext(t *testing.T) {
	t.Parallel()

	_, err := InlineEngine{}.Run(context.Background(), WithGroupKey("g").AndTimeout(10*time.Millisecond), func(ctx context.Context) (any, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInlineEngine_Fallback(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	var seen error

	setter := WithGroupKey("g").AndFallback(func(_ context.Context, cause error) (any, error) {
		seen = cause

		return "fallback", nil
	})

	value, err := InlineEngine{}.Run(context.Background(), setter, func(context.Context) (any, error) {
		return nil, boom
	})

	require.NoError(t, err)
	assert.Equal(t, "fallback", value)
	assert.Same(t, boom, seen)
}

func TestInlineEngine_RecoversPanic(t *testing.T) {
	t.Parallel()

	_, err := InlineEngine{}.Run(context.Background(), WithGroupKey("g"), func(context.Context) (any, error) {
		panic("boom")
	})

	assert.ErrorIs(t, err, runtime.ErrPanic)
}

func TestInlineEngine_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := InlineEngine{}.Run(context.Background(), WithGroupKey("g"), nil)
	assert.ErrorIs(t, err, ErrNilCallable)

	_, err = InlineEngine{}.Run(context.Background(), Setter{}, func(context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrInvalidSetter)
}
