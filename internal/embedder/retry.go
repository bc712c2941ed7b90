package embedder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// defaultMaxRetries is zero: a failed call surfaces to the caller, which
	// decides whether the text is dropped.
	defaultMaxRetries   = 0
	defaultRetryInitial = 500 * time.Millisecond
)

// Pacer gates outbound calls. *Throttle satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// ErrEmptyEmbedding is returned when a backend answers 2xx with no vector.
var ErrEmptyEmbedding = errors.New("empty embedding")

// ErrDimensionMismatch is returned when a vector has the wrong length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// withRetry runs op, repeating it with exponential backoff while it fails
// with a 5xx StatusError or a transport error. Any other StatusError, and
// errors marked with permanent, stop immediately. Every repeat first waits on
// pacer when one is set; the first attempt is gated by the caller.
func withRetry(ctx context.Context, maxRetries uint64, initial time.Duration, pacer Pacer, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initial
	exp.MaxElapsedTime = 0

	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, maxRetries), ctx)
	return backoff.Retry(func() error {
		if attempt > 0 && pacer != nil {
			if err := pacer.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		attempt++

		err := op()
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// permanent marks err as not worth retrying.
func permanent(err error) error { return backoff.Permanent(err) }

// checkVector rejects empty vectors, non-finite components and, when dims is
// positive, vectors of the wrong length.
func checkVector(vec []float32, dims int) error {
	if len(vec) == 0 {
		return ErrEmptyEmbedding
	}
	if dims > 0 && len(vec) != dims {
		return fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, dims, len(vec))
	}
	for i, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("embedding component %d is not finite", i)
		}
	}
	return nil
}
