// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType classifies a failure so that callers can pick a handling strategy
type ErrorType int

const (
	ErrorTypeUnknown          ErrorType = iota
	ErrorTypeTransient                  // Host hiccups, dropped connections
	ErrorTypePermanent                  // Host refused the request outright
	ErrorTypeTimeout                    // Call exceeded its time bound
	ErrorTypeUnavailable                // Host gone, browser closed, circuit open
	ErrorTypeInvalidInput               // Malformed document, snapshot or request
	ErrorTypeResourceNotFound           // Missing region, summary or page
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "Unknown"
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypePermanent:
		return "Permanent"
	case ErrorTypeTimeout:
		return "Timeout"
	case ErrorTypeUnavailable:
		return "Unavailable"
	case ErrorTypeInvalidInput:
		return "InvalidInput"
	case ErrorTypeResourceNotFound:
		return "ResourceNotFound"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}

// Kind returns the snake_case name used in structured error descriptors
func (et ErrorType) Kind() string {
	switch et {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeUnavailable:
		return "unavailable"
	case ErrorTypeInvalidInput:
		return "invalid_input"
	case ErrorTypeResourceNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String()
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes an error for appropriate handling
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		return &ClassifiedError{Original: err, Type: ErrorTypeUnavailable, Message: err.Error()}
	}

	if isTimeoutError(err) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("Timeout error: %v", err),
			Retryable: true,
		}
	}

	if isNetworkError(err) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTransient,
			Message:   fmt.Sprintf("Network error: %v", err),
			Retryable: true,
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.Canceled):
		return &ClassifiedError{Original: err, Type: ErrorTypeUnavailable, Message: fmt.Sprintf("Canceled: %v", err)}

	// Browser host went away underneath us
	case strings.Contains(errStr, "target closed") || strings.Contains(errStr, "websocket") ||
		strings.Contains(errStr, "browser closed") || strings.Contains(errStr, "no such target"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeUnavailable,
			Message:   fmt.Sprintf("Host unavailable: %v", err),
			Retryable: false,
		}

	case strings.Contains(errStr, "net::err_") || strings.Contains(errStr, "connection reset"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTransient,
			Message:   fmt.Sprintf("Navigation error: %v", err),
			Retryable: true,
		}

	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "does not exist"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeResourceNotFound,
			Message:   fmt.Sprintf("Resource not found: %v", err),
			Retryable: false,
		}

	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "malformed") ||
		strings.Contains(errStr, "decode") || strings.Contains(errStr, "parse"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeInvalidInput,
			Message:   fmt.Sprintf("Invalid input: %v", err),
			Retryable: false,
		}
	}

	return &ClassifiedError{
		Original:  err,
		Type:      ErrorTypeUnknown,
		Message:   fmt.Sprintf("Unknown error: %v", err),
		Retryable: false,
	}
}

// isNetworkError checks if an error is network-related
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// isTimeoutError checks if an error is timeout-related
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{Original: cause, Type: ErrorTypeTransient, Message: message, Retryable: true}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{Original: cause, Type: ErrorTypePermanent, Message: message}
}

// NewInvalidInputError creates an error for malformed caller input
func NewInvalidInputError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{Original: cause, Type: ErrorTypeInvalidInput, Message: message}
}

// NewNotFoundError creates an error for a missing resource
func NewNotFoundError(message string) *ClassifiedError {
	return &ClassifiedError{Type: ErrorTypeResourceNotFound, Message: message}
}
