package engine

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// DefaultRetryCap bounds the sleep between retry attempts. Matches the
// longest interval the chunk upload path tolerates.
const DefaultRetryCap = 1920 * time.Second

// RetryPolicy wraps a fallible operation with capped exponential
// backoff. The attempt count is unbounded: once the computed sleep
// reaches Cap, retries continue at that interval until the operation
// succeeds or the context is cancelled. Callers needing a hard ceiling
// on total retried time must enforce it through the context.
type RetryPolicy struct {
	// Cap is the maximum sleep between attempts. Zero means
	// DefaultRetryCap.
	Cap time.Duration

	// Logger receives a warning per failed attempt. Nil means the
	// default logger.
	Logger *slog.Logger
}

// Backoff returns the sleep before retrying after the given attempt,
// counted from zero: min(0.5 * 2^attempt, Cap).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	cap := p.Cap
	if cap <= 0 {
		cap = DefaultRetryCap
	}
	d := time.Duration(0.5 * math.Pow(2, float64(attempt)) * float64(time.Second))
	if d > cap || d <= 0 {
		d = cap
	}
	return d
}

// Do runs op until it succeeds. Every failure is logged with the
// computed sleep before sleeping. Returns the context error if the
// context ends first.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}

		sleep := p.Backoff(attempt)
		logger.Warn("operation failed, retrying",
			"error", err,
			"attempt", attempt,
			"sleep", sleep,
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
