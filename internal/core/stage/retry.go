package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asynkron/patchstage/internal/vcs"
)

// RetryConfig controls how often an operation that failed with a retryable
// error is attempted again.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries).
	MaxRetries int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// Multiplier grows the backoff after each retry.
	Multiplier float64
}

// BranchRetryConfig allows exactly one retry of branch creation.
func BranchRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     1,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     1,
	}
}

// isBranchCollision reports whether err is worth another branch attempt.
func isBranchCollision(err error) bool {
	return errors.Is(err, vcs.ErrBranchExists)
}

// executeWithRetry calls fn until it succeeds, fails with an error retryable
// rejects, or the retries run out. fn receives the zero-based attempt number.
func executeWithRetry(ctx context.Context, config *RetryConfig, retryable func(error) bool, fn func(attempt int) error) error {
	if config == nil || config.MaxRetries <= 0 {
		return fn(0)
	}

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if retryable == nil || !retryable(err) {
			return err
		}
		if attempt >= config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(backoff):
		}

		if config.Multiplier > 0 {
			backoff = time.Duration(float64(backoff) * config.Multiplier)
		}
		if config.MaxBackoff > 0 && backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	return fmt.Errorf("retry exhausted after %d attempts: %w", config.MaxRetries+1, lastErr)
}
