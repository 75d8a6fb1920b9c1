// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed   CircuitBreakerState = iota // Calls pass through
	StateOpen                                // Calls fail immediately
	StateHalfOpen                            // One probe decides
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name             string           // Host name used in diagnostics
	FailureThreshold int              // Consecutive failures before opening
	Cooldown         time.Duration    // Wait before a half-open probe
	IsFailure        func(error) bool // Which errors count against the host
}

// DefaultCircuitBreakerConfig returns settings for a host collaborator. Within
// one detection pass a handful of geometry timeouts is enough to stop asking.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 3,
		Cooldown:         10 * time.Second,
		IsFailure:        HostFailure,
	}
}

// HostFailure counts timeouts, transient and unavailable errors against a host.
// Invalid input says nothing about host health.
func HostFailure(err error) bool {
	if err == nil {
		return false
	}
	switch ClassifyError(err).Type {
	case ErrorTypeTimeout, ErrorTypeTransient, ErrorTypeUnavailable:
		return true
	}
	return false
}

// CircuitBreaker stops calling a host collaborator after repeated failures and
// lets a single probe through once the cooldown has passed
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu       sync.Mutex
	state    CircuitBreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.IsFailure == nil {
		config.IsFailure = HostFailure
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 1
	}
	return &CircuitBreaker{config: config}
}

// Execute runs fn unless the breaker is open
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		since := time.Since(cb.openedAt)
		if since < cb.config.Cooldown {
			return &CircuitBreakerError{
				Name:  cb.config.Name,
				State: cb.state,
				Message: fmt.Sprintf("%s host is not responding (%d consecutive failures, retry in %v)",
					cb.config.Name, cb.failures, (cb.config.Cooldown - since).Round(time.Millisecond)),
			}
		}
		cb.state = StateHalfOpen
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			return &CircuitBreakerError{
				Name:    cb.config.Name,
				State:   cb.state,
				Message: fmt.Sprintf("%s host is being probed", cb.config.Name),
			}
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if !cb.config.IsFailure(err) {
		cb.state = StateClosed
		cb.failures = 0
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
		cb.state = StateOpen
		cb.openedAt = time.Now()
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the breaker, e.g. when a new page context starts
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probing = false
	cb.openedAt = time.Time{}
}

// CircuitBreakerError is returned when the breaker refuses a call
type CircuitBreakerError struct {
	Name    string
	State   CircuitBreakerState
	Message string
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// IsCircuitBreakerError checks if an error is a circuit breaker error
func IsCircuitBreakerError(err error) bool {
	var cbErr *CircuitBreakerError
	return errors.As(err, &cbErr)
}
