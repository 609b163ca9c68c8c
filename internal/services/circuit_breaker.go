package services

import (
	"errors"
	"sync"
	"time"

	"nexusmc-api/internal/models"
)

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int
	// OpenTimeout is how long the circuit rejects calls before letting a probe through.
	OpenTimeout time.Duration
	// SuccessThreshold probe successes close it again.
	SuccessThreshold int
	// OnStateChange runs under the breaker's lock and must not call back into it.
	OnStateChange func(from, to models.CircuitBreakerState)
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		SuccessThreshold: 1,
	}
}

// CircuitBreaker counts consecutive upstream failures. While half open it lets
// one probe through at a time and rejects everything else.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     models.CircuitBreakerState
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) CircuitBreakerInterface {
	cfg.FailureThreshold = max(cfg.FailureThreshold, 1)
	cfg.SuccessThreshold = max(cfg.SuccessThreshold, 1)
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Allow returns ErrCircuitBreakerOpen when the call must not reach the upstream.
// Every nil return has to be matched by one Report or Release.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == models.CircuitOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.moveTo(models.CircuitHalfOpen)
	}

	switch cb.state {
	case models.CircuitOpen:
		return ErrCircuitBreakerOpen
	case models.CircuitHalfOpen:
		if cb.probing {
			return ErrCircuitBreakerOpen
		}
		cb.probing = true
	}
	return nil
}

// Report records the outcome of a call Allow let through.
func (cb *CircuitBreaker) Report(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == models.CircuitHalfOpen {
		cb.probing = false
		switch {
		case failed:
			cb.moveTo(models.CircuitOpen)
		case cb.successes+1 >= cb.cfg.SuccessThreshold:
			cb.moveTo(models.CircuitClosed)
		default:
			cb.successes++
		}
		return
	}

	if !failed {
		cb.failures = 0
		return
	}
	cb.failures++
	if cb.state == models.CircuitClosed && cb.failures >= cb.cfg.FailureThreshold {
		cb.moveTo(models.CircuitOpen)
	}
}

// Release gives back a call Allow let through without recording an outcome,
// for calls the caller abandoned before the upstream answered.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == models.CircuitHalfOpen {
		cb.probing = false
	}
}

func (cb *CircuitBreaker) moveTo(next models.CircuitBreakerState) {
	prev := cb.state
	cb.state = next
	cb.failures, cb.successes, cb.probing = 0, 0, false
	if next == models.CircuitOpen {
		cb.openedAt = cb.now()
	}
	if prev != next && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(prev, next)
	}
}

func (cb *CircuitBreaker) State() models.CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures is the current run of consecutive failures while closed.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
