package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// FetchLimiter paces outgoing feed requests and counts them per host.
type FetchLimiter struct {
	limiter *rate.Limiter

	mu      sync.Mutex
	perHost map[string]int
	total   int
	max     int
}

// New allows perSecond requests per second with a burst of one. A max of
// zero means no overall request budget. A non-positive rate disables
// pacing.
func New(perSecond float64, max int) *FetchLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &FetchLimiter{
		limiter: rate.NewLimiter(limit, 1),
		perHost: make(map[string]int),
		max:     max,
	}
}

// Wait blocks until a request to host may proceed. It fails when the
// request budget is spent or ctx ends first.
func (l *FetchLimiter) Wait(ctx context.Context, host string) error {
	l.mu.Lock()
	if l.max > 0 && l.total >= l.max {
		l.mu.Unlock()
		return fmt.Errorf("fetch budget of %d requests reached", l.max)
	}
	l.total++
	l.perHost[host]++
	l.mu.Unlock()

	return l.limiter.Wait(ctx)
}

func (l *FetchLimiter) GetStats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	hosts := make(map[string]int, len(l.perHost))
	for h, n := range l.perHost {
		hosts[h] = n
	}
	return map[string]interface{}{
		"total_requests": l.total,
		"max_requests":   l.max,
		"per_host":       hosts,
	}
}
