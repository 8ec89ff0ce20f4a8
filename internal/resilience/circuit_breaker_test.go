package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend unavailable")

func failingCall(context.Context) error { return errBackend }
func successCall(context.Context) error { return nil }

func newTestBreaker(maxFailures int, cooldown time.Duration, probes int) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "test",
		MaxFailures: maxFailures,
		Timeout:     cooldown,
		HalfOpenMax: probes,
	})
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(3, time.Minute, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Equal(t, StateClosed, cb.State())
		err := cb.Execute(ctx, failingCall)
		assert.ErrorIs(t, err, errBackend)
	}

	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(ctx, successCall)
	assert.ErrorIs(t, err, ErrCircuitOpen, "open breaker must fail fast")
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb := newTestBreaker(3, time.Minute, 1)
	ctx := context.Background()

	_ = cb.Execute(ctx, failingCall)
	_ = cb.Execute(ctx, failingCall)
	require.NoError(t, cb.Execute(ctx, successCall))
	_ = cb.Execute(ctx, failingCall)
	_ = cb.Execute(ctx, failingCall)

	assert.Equal(t, StateClosed, cb.State(), "streak was interrupted, breaker stays closed")
}

func TestCircuitBreaker_ProbeQuorumCloses(t *testing.T) {
	cb := newTestBreaker(1, 20*time.Millisecond, 2)
	ctx := context.Background()

	_ = cb.Execute(ctx, failingCall)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)

	require.NoError(t, cb.Execute(ctx, successCall))
	assert.Equal(t, StateHalfOpen, cb.State(), "one probe short of quorum")

	require.NoError(t, cb.Execute(ctx, successCall))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	cb := newTestBreaker(1, 20*time.Millisecond, 3)
	ctx := context.Background()

	_ = cb.Execute(ctx, failingCall)
	time.Sleep(30 * time.Millisecond)

	err := cb.Execute(ctx, failingCall)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, StateOpen, cb.State())

	err = cb.Execute(ctx, successCall)
	assert.ErrorIs(t, err, ErrCircuitOpen, "cooldown restarts after a failed probe")
}

func TestCircuitBreaker_CanceledContextIsNotAFailure(t *testing.T) {
	cb := newTestBreaker(1, time.Minute, 1)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(canceled, successCall)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())

	err = cb.Execute(context.Background(), func(context.Context) error {
		return context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State(), "propagated cancellation says nothing about backend health")
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := newTestBreaker(1, time.Minute, 1)

	_ = cb.Execute(context.Background(), failingCall)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(context.Background(), successCall))
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	transitions := make(chan [2]State, 4)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "cb-test",
		MaxFailures: 1,
		Timeout:     time.Minute,
		HalfOpenMax: 1,
		OnStateChange: func(name string, from, to State) {
			transitions <- [2]State{from, to}
		},
	})

	_ = cb.Execute(context.Background(), failingCall)

	select {
	case tr := <-transitions:
		assert.Equal(t, StateClosed, tr[0])
		assert.Equal(t, StateOpen, tr[1])
	case <-time.After(time.Second):
		t.Fatal("state change callback never fired")
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
