package netease

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without contacting the catalog while the
// breaker is open.
var ErrCircuitOpen = errors.New("catalog circuit open")

// BreakerState is the state of the catalog circuit breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

const (
	defaultBreakerFailures = 5
	defaultBreakerReset    = 30 * time.Second
)

// BreakerStatus is the JSON form of the breaker state.
type BreakerStatus struct {
	State            string `json:"state"`
	FailureCount     int    `json:"failure_count"`
	FailureThreshold int    `json:"failure_threshold"`
	ResetTimeoutSec  int    `json:"reset_timeout_sec"`
	LastFailureAt    int64  `json:"last_failure_at,omitempty"`
}

// circuitBreaker stops calling the catalog after consecutive transport or
// server failures, then lets a single trial request through once resetTimeout has
// passed. A successful trial closes it again.
type circuitBreaker struct {
	mu              sync.Mutex
	state           BreakerState
	failures        int
	threshold       int
	resetTimeout    time.Duration
	lastFailureTime time.Time
	probing         bool
	now             func() time.Time
}

func newCircuitBreaker(threshold int, resetTimeout time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = defaultBreakerFailures
	}
	if resetTimeout <= 0 {
		resetTimeout = defaultBreakerReset
	}
	return &circuitBreaker{
		state:        BreakerClosed,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// allow reports whether a request may be sent.
func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.resetTimeout {
			return false
		}
		cb.state = BreakerHalfOpen
		cb.probing = true
		return true
	case BreakerHalfOpen:
		// one trial at a time
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
	return true
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = BreakerClosed
	cb.failures = 0
	cb.probing = false
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = cb.now()
	cb.probing = false
	switch cb.state {
	case BreakerClosed:
		cb.failures++
		if cb.failures >= cb.threshold {
			cb.state = BreakerOpen
		}
	case BreakerHalfOpen:
		cb.state = BreakerOpen
	}
}

// release ends a trial whose outcome says nothing about the catalog.
func (cb *circuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == BreakerHalfOpen {
		cb.probing = false
	}
}

func (cb *circuitBreaker) reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = BreakerClosed
	cb.failures = 0
	cb.probing = false
}

func (cb *circuitBreaker) status() BreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	st := BreakerStatus{
		State:            string(cb.state),
		FailureCount:     cb.failures,
		FailureThreshold: cb.threshold,
		ResetTimeoutSec:  int(cb.resetTimeout.Seconds()),
	}
	if !cb.lastFailureTime.IsZero() {
		st.LastFailureAt = cb.lastFailureTime.Unix()
	}
	return st
}
