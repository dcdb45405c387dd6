package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/flightscan/internal/model"
	"github.com/sells-group/flightscan/internal/resilience"
)

func TestRateLimited_WaitBeyondDeadlineIsTimeout(t *testing.T) {
	var calls int
	inner := countingAdapter("alpha", &calls, func(int) ([]model.RawRow, error) { return nil, nil })
	rl := NewRateLimited(inner, 1, 1)
	assert.Equal(t, "alpha", rl.Name())

	_, err := rl.Search(context.Background(), jfkLHR(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = rl.Search(ctx, jfkLHR(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 1, calls)
}

func TestRateLimited_Disabled(t *testing.T) {
	var calls int
	inner := countingAdapter("alpha", &calls, func(int) ([]model.RawRow, error) { return nil, nil })
	rl := NewRateLimited(inner, 0, 0)
	for i := 0; i < 20; i++ {
		_, err := rl.Search(context.Background(), jfkLHR(t))
		require.NoError(t, err)
	}
	assert.Equal(t, 20, calls)
}

func TestRateLimited_OutsideGuardLeavesBreakerClosed(t *testing.T) {
	var calls int
	inner := countingAdapter("alpha", &calls, func(int) ([]model.RawRow, error) { return nil, nil })
	breaker := testBreaker("alpha", 1)
	a := Throttled([]Adapter{NewGuard(inner, breaker, quickRetry(3))}, 1, 1)[0]

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, err := a.Search(ctx, jfkLHR(t))
		cancel()
		if i == 0 {
			require.NoError(t, err)
			continue
		}
		assert.True(t, errors.Is(err, ErrTimeout), "call %d: %v", i, err)
		assert.False(t, errors.Is(err, ErrCircuitOpen), "call %d: %v", i, err)
	}

	assert.Equal(t, 1, calls)
	assert.Equal(t, resilience.CircuitClosed, breaker.State())
}

func TestThrottled_KeepsOrderAndNames(t *testing.T) {
	var calls int
	noop := func(int) ([]model.RawRow, error) { return nil, nil }
	out := Throttled([]Adapter{countingAdapter("a", &calls, noop), countingAdapter("b", &calls, noop)}, 0, 1)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Name())
	assert.Equal(t, "b", out[1].Name())
	assert.IsType(t, &RateLimited{}, out[0])
}
