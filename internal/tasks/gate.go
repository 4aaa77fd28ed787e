package tasks

import (
	"context"

	"golang.org/x/time/rate"
)

// Gate paces upstream searches and writes with a token bucket.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate creates a Gate allowing perSecond calls with the given burst. A rate of zero or less is unlimited.
func NewGate(perSecond float64, burst int) *Gate {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Gate{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until the next call may proceed or ctx is done. A nil Gate only checks ctx.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return ctx.Err()
	}
	return g.limiter.Wait(ctx)
}
