// Package retry provides a small retry combinator wrapping a fallible
// operation in bounded exponential backoff, replacing the pure
// decorators the original implementation used.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Do runs op, retrying on error up to attempts times with exponential
// backoff starting at baseDelay and growing by multiplier, honoring
// ctx cancellation. It returns the last error if every attempt fails.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, multiplier float64, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.Multiplier = multiplier
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries instead of wall-clock

	return backoff.Retry(op, backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(attempts)))
}
