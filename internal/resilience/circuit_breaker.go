package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call without
// attempting it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker shields the pipeline from a persistently failing
// warehouse. Consecutive failures up to the threshold open the circuit and
// subsequent calls fail fast with ErrCircuitOpen. After the cooldown one
// probe call at a time is let through; enough consecutive probe successes
// close the circuit, a single probe failure reopens it.
type CircuitBreaker struct {
	name        string
	threshold   int
	cooldown    time.Duration
	probeQuorum int

	mu          sync.Mutex
	state       State
	failStreak  int
	probeStreak int
	openedAt    time.Time

	onStateChange func(name string, from, to State)
}

type CircuitBreakerConfig struct {
	Name          string
	MaxFailures   int
	Timeout       time.Duration
	HalfOpenMax   int
	OnStateChange func(name string, from, to State)
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}

	return &CircuitBreaker{
		name:          cfg.Name,
		threshold:     cfg.MaxFailures,
		cooldown:      cfg.Timeout,
		probeQuorum:   cfg.HalfOpenMax,
		state:         StateClosed,
		onStateChange: cfg.OnStateChange,
	}
}

// Execute runs fn under the breaker. A canceled context counts as a
// rejection, not a failure: it says nothing about warehouse health.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !cb.allow() {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		cb.onFailure()
		return err
	}
	if err != nil {
		return err
	}

	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.openedAt) > cb.cooldown {
		cb.shift(StateHalfOpen)
	}
	return cb.state != StateOpen
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failStreak = 0
	case StateHalfOpen:
		cb.probeStreak++
		if cb.probeStreak >= cb.probeQuorum {
			cb.shift(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.openedAt = time.Now()

	switch cb.state {
	case StateClosed:
		cb.failStreak++
		if cb.failStreak >= cb.threshold {
			cb.shift(StateOpen)
		}
	case StateHalfOpen:
		cb.shift(StateOpen)
	}
}

// shift changes state and resets streaks. Callers hold the lock.
func (cb *CircuitBreaker) shift(to State) {
	from := cb.state
	cb.state = to
	cb.failStreak = 0
	cb.probeStreak = 0

	if cb.onStateChange != nil {
		go cb.onStateChange(cb.name, from, to)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed regardless of history.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failStreak = 0
	cb.probeStreak = 0
}

// Stats exposes the current state for the metrics endpoint.
func (cb *CircuitBreaker) Stats() (state State, failures int, lastFail time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state, cb.failStreak, cb.openedAt
}
