package failover

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/helix-ml/tier-router/internal/services/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func succeed(v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return v, nil }
}

func fail(err error) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return "", err }
}

func TestRunReturnsFirstSuccess(t *testing.T) {
	result, err := Run(context.Background(), "req-1", []Candidate[string]{
		{Name: "a", Invoke: succeed("from-a")},
		{Name: "b", Invoke: fail(errors.New("unused"))},
	})

	require.NoError(t, err)
	assert.Equal(t, "from-a", result.Value)
	assert.Equal(t, 0, result.Winner)
	assert.Empty(t, result.Attempts)
}

func TestRunAdvancesPastFailures(t *testing.T) {
	boom := errors.New("boom")

	result, err := Run(context.Background(), "req-2", []Candidate[string]{
		{Name: "a", Invoke: fail(boom)},
		{Name: "b", Invoke: succeed("from-b")},
	})

	require.NoError(t, err)
	assert.Equal(t, "from-b", result.Value)
	assert.Equal(t, 1, result.Winner)
	require.Len(t, result.Attempts, 1)
	assert.Equal(t, "a", result.Attempts[0].Name)
	assert.ErrorIs(t, result.Attempts[0].Err, boom)
}

func TestRunExhaustionJoinsAllErrors(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")

	result, err := Run(context.Background(), "req-3", []Candidate[string]{
		{Name: "a", Invoke: fail(errA)},
		{Name: "b", Invoke: fail(errB)},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, -1, result.Winner)
	assert.Len(t, result.Attempts, 2)
}

func TestRunSkipsOpenBreakerWithoutInvoking(t *testing.T) {
	cb := circuitbreaker.NewWithConfig("dep", circuitbreaker.Config{FailureThreshold: 1, Cooldown: time.Minute})
	cb.RecordFailure()

	invoked := false
	result, err := Run(context.Background(), "req-4", []Candidate[string]{
		{Name: "guarded", Breaker: cb, Invoke: func(context.Context) (string, error) {
			invoked = true
			return "nope", nil
		}},
		{Name: "next", Invoke: succeed("from-next")},
	})

	require.NoError(t, err)
	assert.False(t, invoked, "open breaker must prevent the call")
	assert.Equal(t, "from-next", result.Value)
	require.Len(t, result.Attempts, 1)
}

func TestRunRecordsBreakerOutcomes(t *testing.T) {
	cb := circuitbreaker.NewWithConfig("dep", circuitbreaker.Config{FailureThreshold: 2, Cooldown: time.Minute})

	_, _ = Run(context.Background(), "req-5", []Candidate[string]{
		{Name: "guarded", Breaker: cb, Invoke: fail(errors.New("down"))},
	})
	assert.Equal(t, 1, cb.FailureCount())

	_, err := Run(context.Background(), "req-5", []Candidate[string]{
		{Name: "guarded", Breaker: cb, Invoke: succeed("up")},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, cb.FailureCount())
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, "req-6", []Candidate[string]{
		{Name: "a", Invoke: succeed("never")},
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunCancellationMidInvokeCountsAsBreakerFailure(t *testing.T) {
	cb := circuitbreaker.NewWithConfig("dep", circuitbreaker.Config{FailureThreshold: 10, Cooldown: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())

	result, err := Run(ctx, "req-7", []Candidate[string]{
		{Name: "guarded", Breaker: cb, Invoke: func(ctx context.Context) (string, error) {
			cancel()
			return "", ctx.Err()
		}},
		{Name: "next", Invoke: succeed("never")},
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, cb.FailureCount(), "cancelled attempt is a failure for isolation accounting")
}
