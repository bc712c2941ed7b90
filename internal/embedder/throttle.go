package embedder

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultInterval is the minimum spacing between embedding calls.
	DefaultInterval = 1200 * time.Millisecond
	// DefaultCooldown is the pause after a 429 that carried no Retry-After.
	DefaultCooldown = 60 * time.Second
)

// Throttle paces outbound embedding calls. It is a token bucket with burst 1
// plus a cool-down window opened by RecordRateLimit. It knows nothing about
// what is being embedded. Safe for concurrent use.
type Throttle struct {
	limiter  *rate.Limiter
	cooldown time.Duration

	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

// NewThrottle returns a Throttle allowing one call per interval. A
// non-positive interval disables pacing; a non-positive cooldown uses
// DefaultCooldown.
func NewThrottle(interval, cooldown time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Throttle{
		limiter:  rate.NewLimiter(limit, 1),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Wait blocks until a call may be made or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if d := t.Remaining(); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return t.limiter.Wait(ctx)
}

// RecordRateLimit opens a cool-down window of retryAfter, or the default
// cooldown when retryAfter is zero. An already longer window is kept.
func (t *Throttle) RecordRateLimit(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = t.cooldown
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if until := t.now().Add(retryAfter); until.After(t.until) {
		t.until = until
	}
}

// Remaining returns how long the current cool-down window still lasts.
func (t *Throttle) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d := t.until.Sub(t.now()); d > 0 {
		return d
	}
	return 0
}
