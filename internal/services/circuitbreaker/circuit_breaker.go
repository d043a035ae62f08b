// Package circuitbreaker isolates failing downstream dependencies. One breaker
// guards one dependency; state transitions are serialized under a mutex so
// concurrent callers observe a consistent state machine.
package circuitbreaker

import (
	"fmt"
	"sync"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

type Config struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// DefaultConfig returns the breaker settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// CircuitBreaker is a per-dependency CLOSED/OPEN/HALF_OPEN state machine.
// In HALF_OPEN exactly one trial call is admitted; its outcome decides the
// next state.
type CircuitBreaker struct {
	serviceName string
	config      Config

	mu             sync.Mutex
	state          State
	failures       int
	lastTransition time.Time
	trialInFlight  bool
}

func New(serviceName string) *CircuitBreaker {
	return NewWithConfig(serviceName, DefaultConfig())
}

func NewWithConfig(serviceName string, config Config) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultConfig().Cooldown
	}
	return &CircuitBreaker{
		serviceName:    serviceName,
		config:         config,
		state:          Closed,
		lastTransition: time.Now(),
	}
}

// CanExecute reports whether a call may proceed. In OPEN it rejects until the
// cooldown has elapsed, then moves to HALF_OPEN and admits one trial call.
// Every admitted call must be followed by RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case Closed:
		return true
	case Open:
		if time.Since(cb.lastTransition) >= cb.config.Cooldown {
			cb.transitionLocked(HalfOpen)
			cb.trialInFlight = true
			fiberlog.Infof("CircuitBreaker: %s cooldown elapsed, admitting trial call", cb.serviceName)
			return true
		}
		return false
	case HalfOpen:
		if cb.trialInFlight {
			return false
		}
		cb.trialInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess resets the consecutive-failure counter; a successful trial in
// HALF_OPEN closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0

	if cb.state == HalfOpen {
		cb.trialInFlight = false
		cb.transitionLocked(Closed)
		fiberlog.Infof("CircuitBreaker: %s transitioned to Closed state after trial success", cb.serviceName)
	}
}

// RecordFailure increments the consecutive-failure counter; reaching the
// threshold in CLOSED, or any failure in HALF_OPEN, opens the circuit and
// restarts the cooldown window.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++

	switch cb.state {
	case Closed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionLocked(Open)
			fiberlog.Warnf("CircuitBreaker: %s transitioned to Open state after %d consecutive failures",
				cb.serviceName, cb.failures)
		}
	case HalfOpen:
		cb.trialInFlight = false
		cb.transitionLocked(Open)
		fiberlog.Warnf("CircuitBreaker: %s trial call failed, reopening", cb.serviceName)
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// FailureCount returns the consecutive-failure counter. Never negative.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset returns the breaker to CLOSED with a zero failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.trialInFlight = false
	cb.transitionLocked(Closed)
	fiberlog.Infof("CircuitBreaker: reset circuit breaker for service %s", cb.serviceName)
}

func (cb *CircuitBreaker) transitionLocked(newState State) {
	if cb.state == newState {
		return
	}
	fiberlog.Debugf("CircuitBreaker: %s transitioned from %s to %s", cb.serviceName, cb.state, newState)
	cb.state = newState
	cb.lastTransition = time.Now()
}
