package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// StartJitter picks a random delay in [0, upTo) to spread out subprocess
// starts against the same video host.
func StartJitter(upTo time.Duration) time.Duration {
	if upTo <= 0 {
		return 0
	}

	return rand.N(upTo) //nolint:gosec
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewLimiter returns a limiter allowing perSecond requests with a small
// burst. Zero disables limiting.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	return rate.NewLimiter(rate.Limit(perSecond), 2)
}
