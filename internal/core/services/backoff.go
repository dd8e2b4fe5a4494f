package services

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/logger"
)

// Retry defaults for idempotent store operations.
const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 10 * time.Second
)

// withRetry runs fn up to maxAttempts times with exponential backoff and
// jitter. Only transport-level store failures are retried; invalid input
// is surfaced immediately. Callers must only pass idempotent operations
// (queries, or inserts guarded by deduplication).
func withRetry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		delay := backoffDelay(baseDelay, attempt)
		logger.Debug("Retrying after %v (attempt %d/%d): %v", delay, attempt, maxAttempts, lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// retryable classifies errors: store transport failures are retryable,
// caller mistakes and duplicates are not.
func retryable(err error) bool {
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrAlreadyExists) {
		return false
	}
	return errors.Is(err, domain.ErrStoreWrite) || errors.Is(err, domain.ErrStoreQuery)
}

// backoffDelay computes base * 2^(attempt-1) with ±25% jitter, capped.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	jitter := delay * 0.25 * (rand.Float64()*2 - 1)
	delay += jitter
	if delay > float64(defaultMaxDelay) {
		delay = float64(defaultMaxDelay)
	}
	return time.Duration(delay)
}
