package retry

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// RetryableFunc is the operation WithBackoff wraps.
type RetryableFunc func(ctx context.Context) error

// OnRetryableErrorFunc is invoked after a failed attempt that will be
// retried.
type OnRetryableErrorFunc func(attempt uint64, err error)

// Settings configures WithBackoff.
type Settings struct {
	// MaxAttempts bounds the number of attempts, including the first.
	// Defaults to 3, matching spec §4.6's CDC applier default.
	MaxAttempts uint64

	// Backoff computes the delay before each retry. Defaults to
	// NewExponential(5*time.Second, 2), spec §4.6's base/multiplier.
	Backoff Backoff

	// OnRetryableError, if set, runs after each failed attempt that
	// isn't the last.
	OnRetryableError OnRetryableErrorFunc
}

func (s Settings) withDefaults() Settings {
	if s.MaxAttempts == 0 {
		s.MaxAttempts = 3
	}
	if s.Backoff == nil {
		s.Backoff = NewExponential(5*time.Second, 2)
	}
	return s
}

// WithBackoff runs fn, retrying on error up to settings.MaxAttempts
// times with settings.Backoff between attempts. It returns the last
// error if every attempt fails, wrapped with the attempt count. ctx
// cancellation aborts immediately, including during the backoff sleep.
func WithBackoff(ctx context.Context, fn RetryableFunc, settings Settings) error {
	settings = settings.withDefaults()

	var lastErr error
	for attempt := uint64(1); attempt <= settings.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == settings.MaxAttempts {
			break
		}
		if settings.OnRetryableError != nil {
			settings.OnRetryableError(attempt, err)
		}

		select {
		case <-time.After(settings.Backoff(attempt)):
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), lastErr.Error())
		}
	}
	return errors.Wrapf(lastErr, "failed after %d attempts", settings.MaxAttempts)
}
