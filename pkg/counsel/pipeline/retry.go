package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retry runs fn with a per-attempt timeout and exponential backoff between attempts.
// It returns the number of attempts made alongside the last result.
func retry[T any](ctx context.Context, o *Orchestrator, what string, attempts int, timeout time.Duration, fn func(context.Context) (T, error)) (T, int, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.cfg.InitialBackoff
	b.MaxInterval = o.cfg.MaxBackoff

	tries := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		tries++
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fn(attemptCtx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			o.logger.Warn(logModule, "Attempt failed, retrying", map[string]interface{}{
				"step":  what,
				"try":   tries,
				"next":  next.String(),
				"error": err.Error(),
			})
		}),
	)
	return res, tries, err
}

// durable retries a database write with the persist policy.
func (o *Orchestrator) durable(ctx context.Context, what string, fn func(context.Context) error) error {
	_, _, err := retry(ctx, o, what, o.cfg.PersistAttempts, o.cfg.StepTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
