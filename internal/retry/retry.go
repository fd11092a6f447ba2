// Package retry provides the bounded retry policy applied to backing
// store calls. Transient storage failures are retried with exponential
// backoff and jitter; after the attempt budget is spent the last error
// surfaces to the caller instead of hanging.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how a failing operation is retried.
type Policy struct {
	MaxAttempts     uint // total attempts including the first
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy matches the embedded configuration defaults.
var DefaultPolicy = Policy{
	MaxAttempts:     4,
	InitialInterval: 100 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

// Do runs op, retrying transient failures until the policy's attempt
// budget is exhausted or ctx is done. Errors wrapped with Permanent stop
// immediately.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval

	return backoff.Retry(op, backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(attempts-1)))
}

// Permanent marks an error as not worth retrying (validation failures,
// unreadable input). Do returns it as-is on the first attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
