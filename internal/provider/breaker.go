// Package provider defines the dispatch core's external collaborators —
// the routing provider (distance/time matrix, directions) and the
// predictor — behind small interfaces, each guarded by a circuit breaker,
// with a real HTTP-backed implementation and a deterministic fake for
// tests.
package provider

import (
	"sync"
	"time"
)

// breakerState is the circuit breaker's current state.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// Breaker is a per-dependency circuit breaker: it trips after a run of
// consecutive failures within a sliding window, then refuses calls until a
// cooldown elapses, at which point a single probe call is let through
// (half-open) to decide whether to close again or re-open.
//
// Modeled on pkg/ratelimit.MemoryLimiter's mutex-guarded in-memory state,
// repurposed from request-rate tracking to failure tracking.
type Breaker struct {
	mu sync.Mutex

	threshold int
	window    time.Duration
	cooldown  time.Duration

	state          breakerState
	failures       []time.Time
	openedAt       time.Time
	halfOpenInUse  bool
}

// NewBreaker creates a circuit breaker that trips after threshold failures
// within window, and stays open for cooldown before probing again.
func NewBreaker(threshold int, window, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 30 * time.Second
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &Breaker{threshold: threshold, window: window, cooldown: cooldown}
}

// ErrBreakerOpen is returned by Allow when the breaker is tripped and the
// cooldown has not yet elapsed.
type ErrBreakerOpen struct{}

func (ErrBreakerOpen) Error() string { return "circuit breaker open" }

// Allow reports whether a call may proceed. When the breaker is open but
// the cooldown has elapsed, exactly one caller is let through as a probe;
// callers must report the outcome via Success/Failure.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return nil
	case stateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return ErrBreakerOpen{}
		}
		if b.halfOpenInUse {
			return ErrBreakerOpen{}
		}
		b.state = stateHalfOpen
		b.halfOpenInUse = true
		return nil
	case stateHalfOpen:
		return ErrBreakerOpen{}
	default:
		return nil
	}
}

// Success records a successful call, closing the breaker if it was
// half-open and clearing the failure history.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = stateClosed
	b.failures = nil
	b.halfOpenInUse = false
}

// Failure records a failed call. A failing probe re-opens the breaker
// immediately; a failing closed-state call re-opens it once threshold
// failures have landed within window.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.trip()
		return
	}

	now := time.Now()
	b.failures = append(b.failures, now)
	cutoff := now.Add(-b.window)
	kept := b.failures[:0]
	for _, f := range b.failures {
		if f.After(cutoff) {
			kept = append(kept, f)
		}
	}
	b.failures = kept

	if len(b.failures) >= b.threshold {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = stateOpen
	b.openedAt = time.Now()
	b.halfOpenInUse = false
	b.failures = nil
}

// IsOpen reports the breaker's tripped state, for health/status reporting.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateOpen && time.Since(b.openedAt) < b.cooldown
}
