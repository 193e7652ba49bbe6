package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// retry runs fn until it succeeds, attempts run out, or ctx ends. The delay
// starts at delay and grows exponentially with jitter.
func retry(ctx context.Context, attempts int, delay time.Duration, log zerolog.Logger, fn func(context.Context) error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = delay
	exp.MaxElapsedTime = 0

	var b backoff.BackOff = &backoff.StopBackOff{}
	if attempts > 1 {
		b = backoff.WithMaxRetries(exp, uint64(attempts-1))
	}

	attempt := 0
	return backoff.RetryNotify(
		func() error { return fn(ctx) },
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			attempt++
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("Connection attempt failed")
		},
	)
}
