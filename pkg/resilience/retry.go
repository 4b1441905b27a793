package resilience

import (
	"context"
	"time"

	"github.com/bedrockhome/agent/pkg/errorsx"
)

// RetryPolicy retries transient failures with linear backoff. Only
// errors whose reason is retryable (throttled, transport) are retried;
// everything else returns immediately.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

func (r RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt >= r.MaxRetries || !errorsx.Retryable(errorsx.Reason(err)) {
			return err
		}
		wait := time.Duration(attempt+1) * r.Backoff
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
	}
}
