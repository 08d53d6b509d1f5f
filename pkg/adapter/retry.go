package adapter

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/utils/logging"
)

var (
	ErrMaxRetries = goerr.New("external service unavailable after max retries")
)

const (
	maxAttempts    = 5
	initialBackoff = time.Second
)

// sleepFn is replaceable in tests
type sleepFn func(time.Duration)

// retryTransient runs fn up to maxAttempts times, backing off exponentially
// after each transient failure. Non-transient errors return immediately.
func retryTransient(ctx context.Context, sleep sleepFn, transient func(error) bool, fn func() error) error {
	if sleep == nil {
		sleep = time.Sleep
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !transient(lastErr) {
			return lastErr
		}

		logging.From(ctx).Warn("transient external service error, retrying",
			"attempt", attempt+1, "backoff", backoff, "error", lastErr)
		sleep(backoff)
		backoff *= 2
	}

	return goerr.Wrap(ErrMaxRetries, "giving up", goerr.Value("attempts", maxAttempts), goerr.Value("cause", lastErr))
}
