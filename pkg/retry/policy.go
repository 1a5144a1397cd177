// Package retry is the single retry/backoff policy used by every call site
// that talks to a flaky external service.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes a bounded exponential backoff: Attempts total tries with
// delays BaseDelay, 2*BaseDelay, 4*BaseDelay, ... between them. Jitter is
// disabled so the schedule is exact.
type Policy struct {
	Attempts  uint
	BaseDelay time.Duration
}

// Default matches the classifier contract: 3 retries at 1s, 2s, 4s.
func Default() Policy {
	return Policy{Attempts: 4, BaseDelay: 1 * time.Second}
}

// Do runs op until it succeeds or the policy is exhausted, returning the
// last error. The context cancels waiting between attempts.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = 30 * time.Second

	return backoff.Retry(ctx, func() (T, error) {
		return op()
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(p.Attempts))
}
