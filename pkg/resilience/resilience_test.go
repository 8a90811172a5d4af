package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func TestCircuitBreakerLifecycle(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	var transitions []string
	cb := NewCircuitBreaker("redis", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	cb.now = func() time.Time { return clock }

	fail := func() error { return errBackend }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Execute(fail), errBackend)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(fail), errBackend)
	assert.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Execute(func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)

	clock = clock.Add(time.Minute)
	assert.ErrorIs(t, cb.Execute(fail), errBackend)
	assert.Equal(t, StateOpen, cb.State(), "failed probe reopens")

	clock = clock.Add(time.Minute)
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{
		"closed->open", "open->half-open", "half-open->open", "open->half-open", "half-open->closed",
	}, transitions)
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker("x", CircuitBreakerConfig{FailureThreshold: 2})
	cb.Execute(func() error { return errBackend })
	cb.Execute(func() error { return nil })
	cb.Execute(func() error { return errBackend })
	assert.Equal(t, StateClosed, cb.State())

	cb.Execute(func() error { return errBackend })
	assert.Equal(t, StateOpen, cb.State())
	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "save", fastRetry(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errBackend
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "save", fastRetry(2), func(context.Context) error {
		calls++
		return errBackend
	})
	assert.ErrorIs(t, err, errBackend)
	assert.ErrorContains(t, err, "all 2 attempts failed")
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "save", fastRetry(5), func(context.Context) error {
		calls++
		return Permanent(errBackend)
	})
	assert.Equal(t, errBackend, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, "save", fastRetry(5), func(context.Context) error {
		calls++
		cancel()
		return errBackend
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffIsBounded(t *testing.T) {
	cfg := RetryConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second}.withDefaults()
	assert.InDelta(t, float64(time.Second), float64(backoff(1, cfg)), float64(100*time.Millisecond))
	assert.Equal(t, 3*time.Second, backoff(5, cfg))
}

func TestCallReturnsValue(t *testing.T) {
	v, err := Call(context.Background(), time.Second, "run", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = Call(context.Background(), 0, "run", func(context.Context) (int, error) {
		return 3, errBackend
	})
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 3, v)
}

func TestCallDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	v, err := Call(context.Background(), 10*time.Millisecond, "run", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		<-release
		return "late", nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorContains(t, err, "run")
	assert.Empty(t, v)
}

func TestCallParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Call(ctx, time.Second, "run", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}
