package sales

import (
	"context"
	"time"
)

// RetryPolicy decides how long the poller waits before retrying a failed
// signature fetch. attempt starts at 1 for the first consecutive failure.
type RetryPolicy interface {
	Delay(attempt int, err error) time.Duration
}

// NoBackoff retries immediately. It is the default policy.
type NoBackoff struct{}

func (NoBackoff) Delay(int, error) time.Duration { return 0 }

// ConstantBackoff waits the same amount after every failure.
type ConstantBackoff struct {
	Wait time.Duration
}

func (b ConstantBackoff) Delay(int, error) time.Duration { return b.Wait }

// RetryPolicyFor returns NoBackoff for a non-positive delay, ConstantBackoff otherwise.
func RetryPolicyFor(delay time.Duration) RetryPolicy {
	if delay <= 0 {
		return NoBackoff{}
	}
	return ConstantBackoff{Wait: delay}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
