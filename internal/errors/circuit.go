package errors

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while a circuit breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState represents the circuit breaker state.
type BreakerState int

const (
	// BreakerClosed lets every call through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the reset timeout elapses.
	BreakerOpen
	// BreakerHalfOpen lets a single probe through.
	BreakerHalfOpen
)

// String returns a string representation of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker fails fast after repeated failures of a dependency.
// The indexer puts one in front of the embedding model so a dead model
// costs one timeout per reset window instead of one per file.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	probing     bool
}

// CircuitBreakerOption configures a CircuitBreaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithMaxFailures sets the number of consecutive failures before opening.
func WithMaxFailures(n int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.maxFailures = n
		}
	}
}

// WithResetTimeout sets the time to wait before probing again.
func WithResetTimeout(d time.Duration) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.resetTimeout = d
	}
}

// NewCircuitBreaker creates a breaker. Default: 5 failures, 30s reset.
func NewCircuitBreaker(name string, opts ...CircuitBreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		maxFailures:  5,
		resetTimeout: 30 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Name returns the circuit breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// must hold mu
func (cb *CircuitBreaker) currentState() BreakerState {
	if cb.state == BreakerOpen && cb.now().Sub(cb.lastFailure) >= cb.resetTimeout {
		return BreakerHalfOpen
	}
	return cb.state
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := CircuitExecute(cb, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// CircuitExecute runs fn through cb and returns its result.
// Only one probe runs while half-open; concurrent callers get ErrCircuitOpen.
func CircuitExecute[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T

	cb.mu.Lock()
	switch cb.currentState() {
	case BreakerOpen:
		cb.mu.Unlock()
		return zero, ErrCircuitOpen
	case BreakerHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return zero, ErrCircuitOpen
		}
		cb.probing = true
	}
	cb.mu.Unlock()

	result, err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.failures >= cb.maxFailures || cb.state == BreakerOpen {
			cb.state = BreakerOpen
		}
		return zero, err
	}
	cb.failures = 0
	cb.state = BreakerClosed
	return result, nil
}
