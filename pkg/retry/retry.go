package retry

import (
	"context"
	"time"

	applogger "BarView/pkg/logger"
)

// Classifier reports whether err is worth another attempt.
type Classifier func(err error) bool

// Option configures Do.
type Option func(*config)

type config struct {
	attempts  int
	backoff   time.Duration
	retryable Classifier
	logger    *applogger.Logger
	onRetry   func(op string, attempt int, err error)
}

// WithAttempts sets the total number of attempts, including the first.
func WithAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoff sets the base delay; attempt k waits base*k before the next try.
func WithBackoff(d time.Duration) Option {
	return func(c *config) {
		c.backoff = d
	}
}

// WithClassifier sets the retryable error predicate. Without one nothing is retried.
func WithClassifier(f Classifier) Option {
	return func(c *config) {
		c.retryable = f
	}
}

// WithLogger logs every failed attempt at warn level.
func WithLogger(l *applogger.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithOnRetry registers a hook called before each wait.
func WithOnRetry(f func(op string, attempt int, err error)) Option {
	return func(c *config) {
		c.onRetry = f
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or runs out of attempts.
// The last error is returned unchanged so callers can still match sentinels.
func Do(ctx context.Context, op string, fn func(ctx context.Context) error, opts ...Option) error {
	_, err := DoValue(ctx, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, op string, fn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	cfg := &config{
		attempts: 3,
		backoff:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var zero T
	var err error
	for attempt := 1; attempt <= cfg.attempts; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if cfg.retryable == nil || !cfg.retryable(err) || attempt == cfg.attempts {
			break
		}

		if cfg.logger != nil {
			cfg.logger.Warn("operation failed, retrying",
				applogger.String("op", op),
				applogger.Int("attempt", attempt),
				applogger.Int("max_attempts", cfg.attempts),
				applogger.Error(err),
			)
		}
		if cfg.onRetry != nil {
			cfg.onRetry(op, attempt, err)
		}

		timer := time.NewTimer(cfg.backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, err
}
