// Package resilience provides the retry and circuit-breaker primitives shared
// by every outbound client in the orchestration tier.
package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
)

// Terminal classifies an error as non-retryable. A nil classifier treats
// every error as transient.
type Terminal func(error) bool

// OnRetry is invoked before each backoff sleep with the 1-based attempt that
// just failed. Observability only: it cannot influence retry decisions.
type OnRetry func(attempt int, err error)

// Do executes op under the bounded-retry policy described by cfg.
//
// Terminal errors propagate immediately without consuming a retry. Transient
// errors are retried up to cfg.MaxAttempts total invocations, with exponential
// backoff between attempts (InitialDelay growing by BackoffMultiplier up to
// MaxDelay, randomised by Jitter). After the final attempt the last error is
// returned unchanged. Cancellation of ctx interrupts backoff sleeps.
func Do[T any](ctx context.Context, cfg model.RetryConfig, terminal Terminal, onRetry OnRetry, op func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialDelay
	bo.MaxInterval = cfg.MaxDelay
	bo.Multiplier = cfg.BackoffMultiplier
	bo.RandomizationFactor = cfg.Jitter

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempt := 0
	wrapped := func() (T, error) {
		attempt++
		v, err := op()
		if err != nil && terminal != nil && terminal(err) {
			var zero T
			return zero, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, _ time.Duration) {
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}

	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithNotify(notify),
	)
}
