package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var errProbe = errors.New("probe failed")

func fail(context.Context) error    { return errProbe }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(cb *CircuitBreaker, clock *fakeClock)
		expectedState State
	}{
		{
			name: "stays closed on success",
			setup: func(cb *CircuitBreaker, _ *fakeClock) {
				_ = cb.Execute(context.Background(), succeed)
			},
			expectedState: StateClosed,
		},
		{
			name: "opens after max failures",
			setup: func(cb *CircuitBreaker, _ *fakeClock) {
				for i := 0; i < 3; i++ {
					_ = cb.Execute(context.Background(), fail)
				}
			},
			expectedState: StateOpen,
		},
		{
			name: "closes after successful probe",
			setup: func(cb *CircuitBreaker, clock *fakeClock) {
				for i := 0; i < 3; i++ {
					_ = cb.Execute(context.Background(), fail)
				}
				clock.Advance(time.Minute)
				_ = cb.Execute(context.Background(), succeed)
			},
			expectedState: StateClosed,
		},
		{
			name: "reopens after failed probe",
			setup: func(cb *CircuitBreaker, clock *fakeClock) {
				for i := 0; i < 3; i++ {
					_ = cb.Execute(context.Background(), fail)
				}
				clock.Advance(time.Minute)
				_ = cb.Execute(context.Background(), fail)
			},
			expectedState: StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
			cb := NewCircuitBreaker(CircuitBreakerConfig{
				Name:        "cpu",
				MaxFailures: 3,
				Timeout:     30 * time.Second,
				Now:         clock.Now,
			})

			tt.setup(cb, clock)

			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_OpenRejectsWithoutCalling(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "cache", MaxFailures: 1})
	_ = cb.Execute(context.Background(), fail)

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_CallTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "counters",
		CallTimeout: 10 * time.Millisecond,
	})

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, ErrCircuitTimeout)
}

func TestCall_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "memory"})

	v, err := Call(context.Background(), cb, func(context.Context) (float64, error) {
		return 42.5, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42.5, v)
}

func TestCircuitBreaker_CallTimeoutIgnoringContext(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "counters",
		MaxFailures: 1,
		CallTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	v, err := Call(context.Background(), cb, func(context.Context) (int, error) {
		time.Sleep(time.Second)
		return 7, nil
	})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.ErrorIs(t, err, ErrCircuitTimeout)
	assert.Zero(t, v)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_CallerCancelNotCounted(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "memory", MaxFailures: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := cb.Execute(ctx, func(context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_PanicIsFailure(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "cache", MaxFailures: 1})

	err := cb.Execute(context.Background(), func(context.Context) error {
		panic("boom")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Equal(t, StateOpen, cb.State())
}
