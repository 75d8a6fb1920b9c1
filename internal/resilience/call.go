// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"fmt"
	"time"
)

// CallWithTimeout runs fn with a deadline. If fn does not return in time the
// call is abandoned and a Timeout error is returned; fn keeps its derived
// context so a cooperative implementation stops on its own.
func CallWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: NewPermanentError(fmt.Sprintf("host call panicked: %v", r), nil)}
			}
		}()
		v, err := fn(callCtx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-callCtx.Done():
		return zero, &ClassifiedError{
			Original:  callCtx.Err(),
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("host call exceeded %v", timeout),
			Retryable: true,
		}
	}
}

// GuardedCall combines a circuit breaker with a per-call timeout. A nil
// breaker only applies the timeout.
func GuardedCall[T any](ctx context.Context, cb *CircuitBreaker, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if cb == nil {
		return CallWithTimeout(ctx, timeout, fn)
	}
	var out T
	err := cb.Execute(ctx, func(ctx context.Context) error {
		v, err := CallWithTimeout(ctx, timeout, fn)
		out = v
		return err
	})
	return out, err
}
