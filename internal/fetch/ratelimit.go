// Per-domain request pacing, grounded on spec.md §5's connection caps:
// the shared HTTP pool caps total concurrency, but nothing there stops
// one host from claiming most of it. A token bucket per host, wired
// ahead of the simple HTTP fetcher, paces requests per-domain instead.
package fetch

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// domainLimiter hands out one token-bucket rate.Limiter per host,
// created lazily on first use.
type domainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newDomainLimiter(rps float64, burst int) *domainLimiter {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &domainLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (d *domainLimiter) forHost(host string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	lim, ok := d.limiters[host]
	if !ok {
		lim = rate.NewLimiter(d.rps, d.burst)
		d.limiters[host] = lim
	}
	return lim
}

// wait blocks until host's bucket yields a token or ctx is done.
func (d *domainLimiter) wait(ctx context.Context, host string) error {
	return d.forHost(host).Wait(ctx)
}
