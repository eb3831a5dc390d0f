// Package circuitbreaker guards calls to an external chooser service. When
// the service keeps failing, new chooser sessions are answered as failed
// immediately instead of each one waiting on a dead endpoint.
//
// State transitions:
//
//	Closed   → Open      after failureThreshold consecutive failures
//	Open     → HalfOpen  once the open timeout has elapsed
//	HalfOpen → Closed    after successThreshold consecutive probe successes
//	HalfOpen → Open      on any probe failure
//
// While half-open only one probe call is in flight at a time; concurrent
// callers are rejected as if the circuit were open.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker's current state.
type State int

// Breaker states.
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreaker guards a single downstream service.
type CircuitBreaker struct {
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	now              func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probing   bool
	openUntil time.Time
	onChange  func(State)
}

// New creates a CircuitBreaker with the given thresholds and open timeout.
// Defaults are applied for zero/negative values: failureThreshold=5,
// successThreshold=1, timeout=30s.
func New(failureThreshold, successThreshold int, timeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		now:              time.Now,
		state:            StateClosed,
	}
}

// OnStateChange registers fn to be called (with the breaker lock held) on
// every state transition. fn must not call back into the breaker.
func (cb *CircuitBreaker) OnStateChange(fn func(State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onChange = fn
}

// State returns the current state. An open circuit whose timeout has
// elapsed reports HalfOpen.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

// Do runs fn if the circuit admits the call and records the outcome. It
// returns ErrCircuitOpen without calling fn when the circuit is open, or
// when it is half-open and another probe is already running. An error
// caused by ctx ending is returned but not held against the service.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(context.Context) error) error {
	probe, ok := cb.admit()
	if !ok {
		return ErrCircuitOpen
	}
	err := fn(ctx)
	switch {
	case err == nil:
		cb.succeeded(probe)
	case ctx.Err() != nil:
		cb.abandoned(probe)
	default:
		cb.failed(probe)
	}
	return err
}

func (cb *CircuitBreaker) admit() (probe, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.current() {
	case StateClosed:
		return false, true
	case StateHalfOpen:
		if cb.probing {
			return false, false
		}
		cb.probing = true
		return true, true
	default:
		return false, false
	}
}

func (cb *CircuitBreaker) succeeded(probe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if probe {
		cb.probing = false
	}
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.failures, cb.successes = 0, 0
			cb.setState(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) failed(probe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if probe {
		cb.probing = false
	}
	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.trip()
		}
	case StateHalfOpen:
		cb.trip()
	}
}

func (cb *CircuitBreaker) abandoned(probe bool) {
	if !probe {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
}

// The helpers below require cb.mu.

func (cb *CircuitBreaker) current() State {
	if cb.state == StateOpen && !cb.now().Before(cb.openUntil) {
		cb.successes = 0
		cb.setState(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) trip() {
	cb.successes = 0
	cb.openUntil = cb.now().Add(cb.timeout)
	cb.setState(StateOpen)
}

func (cb *CircuitBreaker) setState(s State) {
	if cb.state == s {
		return
	}
	cb.state = s
	if cb.onChange != nil {
		cb.onChange(s)
	}
}
