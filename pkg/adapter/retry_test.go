package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
)

func TestRetryTransient(t *testing.T) {
	ctx := context.Background()
	noSleep := func(time.Duration) {}

	t.Run("succeeds without retry", func(t *testing.T) {
		calls := 0
		err := retryTransient(ctx, noSleep, func(error) bool { return true }, func() error {
			calls++
			return nil
		})
		gt.NoError(t, err)
		gt.V(t, calls).Equal(1)
	})

	t.Run("non-transient error returns immediately", func(t *testing.T) {
		calls := 0
		permanent := errors.New("bad request")
		err := retryTransient(ctx, noSleep, func(error) bool { return false }, func() error {
			calls++
			return permanent
		})
		gt.True(t, errors.Is(err, permanent))
		gt.V(t, calls).Equal(1)
	})

	t.Run("transient error retries until success", func(t *testing.T) {
		calls := 0
		err := retryTransient(ctx, noSleep, func(error) bool { return true }, func() error {
			calls++
			if calls < 3 {
				return errors.New("overloaded")
			}
			return nil
		})
		gt.NoError(t, err)
		gt.V(t, calls).Equal(3)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := retryTransient(ctx, noSleep, func(error) bool { return true }, func() error {
			calls++
			return errors.New("overloaded")
		})
		gt.True(t, errors.Is(err, ErrMaxRetries))
		gt.V(t, calls).Equal(maxAttempts)
	})

	t.Run("backoff doubles each attempt", func(t *testing.T) {
		var slept []time.Duration
		sleep := func(d time.Duration) { slept = append(slept, d) }
		_ = retryTransient(ctx, sleep, func(error) bool { return true }, func() error {
			return errors.New("overloaded")
		})
		gt.A(t, slept).Length(maxAttempts)
		gt.V(t, slept[0]).Equal(time.Second)
		gt.V(t, slept[1]).Equal(2 * time.Second)
		gt.V(t, slept[2]).Equal(4 * time.Second)
	})
}
