package qchsh

import (
	"sync"
	"time"

	"github.com/theapemachine/errnie"
)

/*
CircuitState represents the state of the circuit breaker.
This is used to track whether restarts are currently being accepted.
*/
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation state
	CircuitOpen                         // Too many diverged restarts, rejecting new ones
	CircuitHalfOpen                     // Probationary state, allowing limited restarts
)

/*
CircuitBreaker implements both the circuit breaker pattern and the Regulator
interface. In a search it counts restarts that ended in an error, typically a
diverged run that produced a non-finite value, and stops accepting new restarts
once too many have failed in a row.

The circuit breaker operates in three states:
  - Closed: Normal operation, every restart is scheduled
  - Open: Failure threshold reached, restarts are rejected
  - Half-Open: After the reset timeout, a limited number of restarts probe
    whether runs succeed again
*/
type CircuitBreaker struct {
	mu               sync.RWMutex
	maxFailures      int           // Consecutive failures before opening
	resetTimeout     time.Duration // Time to wait before probing again
	halfOpenMax      int           // Restarts allowed in half-open state
	failureCount     int           // Current count of consecutive failures
	state            CircuitState  // Current state of the circuit breaker
	openTime         time.Time     // Time when the circuit was opened
	halfOpenAttempts int           // Successful probes in half-open state
}

/*
NewCircuitBreaker creates a new circuit breaker in the closed state.

Parameters:
  - maxFailures: Number of consecutive failures allowed before opening the circuit
  - resetTimeout: Duration to wait before attempting to close an open circuit
  - halfOpenMax: Number of successes needed in half-open state to close again
*/
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, halfOpenMax int) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  halfOpenMax,
		state:        CircuitClosed,
	}
}

// Observe implements Regulator. It does nothing: the breaker reacts only to the
// outcomes recorded by RecordFailure and RecordSuccess, not to pool-wide metrics.
func (cb *CircuitBreaker) Observe(*Metrics) {}

// Limit implements Regulator; it is true while restarts are being refused.
func (cb *CircuitBreaker) Limit() bool {
	return !cb.Allow()
}

// Renormalize implements Regulator by moving an expired open circuit to half-open.
func (cb *CircuitBreaker) Renormalize() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && time.Since(cb.openTime) > cb.resetTimeout {
		cb.state = CircuitHalfOpen
		cb.halfOpenAttempts = 0
		errnie.Info("circuit breaker renormalized to half-open state")
	}
}

/*
RecordFailure records a failed restart. Reaching the threshold opens a closed
circuit; any failure while half-open opens it again.
*/
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++

	switch {
	case cb.state == CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.openTime = time.Now()
		errnie.Info("circuit breaker reopened from half-open state")
	case cb.state == CircuitClosed && cb.failureCount >= cb.maxFailures:
		cb.state = CircuitOpen
		cb.openTime = time.Now()
		errnie.Info("circuit breaker opened after %d failed restarts", cb.failureCount)
	}
}

/*
RecordSuccess records a successful restart. It resets the failure count while
closed and counts towards closing the circuit while half-open.
*/
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.halfOpenAttempts++
		if cb.halfOpenAttempts >= cb.halfOpenMax {
			cb.state = CircuitClosed
			cb.failureCount = 0
			cb.halfOpenAttempts = 0
			errnie.Info("circuit breaker closed from half-open")
		}
	case CircuitClosed:
		cb.failureCount = 0
	}
}

// Allow reports whether a new restart may be scheduled.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.openTime) > cb.resetTimeout {
			cb.state = CircuitHalfOpen
			cb.halfOpenAttempts = 0
			return true
		}
		return false
	case CircuitHalfOpen:
		return cb.halfOpenAttempts < cb.halfOpenMax
	default:
		return false
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}
