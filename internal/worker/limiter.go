package worker

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter caps the shared remote-call rate across all batch workers.
// Classify calls resolved locally or from cache never touch it; only
// remote attempts wait here, so N workers cannot multiply the upstream
// request rate by N.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter allowing requestsPerSecond with the given
// burst.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until the next request is allowed or ctx is done. It
// satisfies the resolver's RemoteGate contract.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed right now without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
