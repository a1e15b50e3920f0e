// Package circuitbreaker tracks consecutive failures per platform and stops
// dispatching to a platform that is consistently failing until a cooldown
// elapses. Half-open state admits a single probe attempt.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

type platformState struct {
	state               state
	consecutiveFailures int
	openedAt            time.Time
	probing             bool
}

type CircuitBreaker struct {
	mu        sync.Mutex
	platforms map[string]*platformState
	threshold int
	cooldown  time.Duration
	clock     func() time.Time
}

func New(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		platforms: make(map[string]*platformState),
		threshold: threshold,
		cooldown:  cooldown,
		clock:     time.Now,
	}
}

// Allow reports whether a publish attempt to the platform may proceed.
// Returns ErrCircuitOpen while the circuit is open or a half-open probe is
// already in flight.
func (cb *CircuitBreaker) Allow(platform string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.platforms[platform]
	if !ok {
		return nil
	}

	switch s.state {
	case stateOpen:
		if cb.clock().Sub(s.openedAt) >= cb.cooldown {
			s.state = stateHalfOpen
			s.probing = true
			return nil
		}
		return ErrCircuitOpen
	case stateHalfOpen:
		if s.probing {
			return ErrCircuitOpen
		}
		s.probing = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess closes the circuit for the platform.
func (cb *CircuitBreaker) RecordSuccess(platform string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.platforms[platform]
	if !ok {
		return
	}
	s.state = stateClosed
	s.consecutiveFailures = 0
	s.probing = false
}

// RecordFailure counts a failure; at the threshold the circuit opens.
// A failed half-open probe reopens immediately.
func (cb *CircuitBreaker) RecordFailure(platform string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.platforms[platform]
	if !ok {
		s = &platformState{}
		cb.platforms[platform] = s
	}

	s.consecutiveFailures++
	s.probing = false
	if s.state == stateHalfOpen || s.consecutiveFailures >= cb.threshold {
		s.state = stateOpen
		s.openedAt = cb.clock()
	}
}
