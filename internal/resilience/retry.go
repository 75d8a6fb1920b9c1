// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxRetries      int                          // Retry attempts after the first call
	InitialInterval time.Duration                // Delay before the first retry
	MaxInterval     time.Duration                // Upper bound for any single delay
	Multiplier      float64                      // Growth factor between delays
	Jitter          bool                         // Add up to 25% random noise to each delay
	OnRetry         func(attempt int, err error) // Invoked before each retry
}

// DefaultRetryConfig returns general-purpose retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// NavigationRetryConfig returns settings for page loads in the browser host,
// where a slow portal is common but a long stall is not acceptable.
func NavigationRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     4 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func(ctx context.Context) error

// RetryWithBackoff executes an operation with exponential backoff. Only errors
// classified as retryable are retried; the delay before attempt n is
// InitialInterval * Multiplier^(n-1), capped at MaxInterval.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation RetryableOperation) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDelay(config, attempt)):
			}
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !ClassifyError(err).IsRetryable() {
			return err
		}
	}

	return lastErr
}

func backoffDelay(config RetryConfig, attempt int) time.Duration {
	delay := float64(config.InitialInterval)
	for i := 1; i < attempt; i++ {
		delay *= config.Multiplier
	}
	if config.Jitter {
		delay += delay * 0.25 * rand.Float64()
	}
	if config.MaxInterval > 0 {
		return min(time.Duration(delay), config.MaxInterval)
	}
	return time.Duration(delay)
}

// RetryWithResult executes a function that returns a result with retry logic.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := RetryWithBackoff(ctx, config, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}

// IsRetryable reports whether an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).IsRetryable()
}
