package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/tomcrane/mets-parser/internal/pathstore"
)

const MaxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *pathstore.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// withRetry calls fn up to MaxRetries times, sleeping backoff(attempt)
// between retryable failures. It returns the last error.
func withRetry(ctx context.Context, log *slog.Logger, backoff func(int) time.Duration, fn func() error) error {
	var err error
	for attempt := range MaxRetries {
		err = fn()
		if err == nil || !IsRetryable(err) || attempt == MaxRetries-1 {
			return err
		}
		log.Warn("retryable publish error", "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
