package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter bounds how many calls start per second across every worker
// sharing it. The bucket starts full, so a burst of perSecond calls
// proceeds at once.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter allowing perSecond calls per second.
// A non-positive rate returns nil, which never limits.
func NewLimiter(perSecond int64) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond))}
}

// Wait blocks until a call may start or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}
