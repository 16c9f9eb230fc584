// DNS cache and warmup task, grounded on spec.md §4.2's "IPv4-preferred
// DNS" requirement and §5's background "DNS warmup task". Queries
// nameservers directly via miekg/dns (A first, AAAA only as a
// fallback) instead of relying on Go's net.Resolver, since the net
// package gives no control over record-type ordering.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/miekg/dns"
)

type dnsCacheEntry struct {
	ip      string
	expires time.Time
}

// DNSCache resolves a hostname to an IPv4-preferred address and caches
// the result for ttl, so repeated hops to the same host (redirect
// chains, retries within the escalation ladder) skip the lookup.
type DNSCache struct {
	mu      sync.Mutex
	entries map[string]dnsCacheEntry
	ttl     time.Duration
	client  *dns.Client
	servers []string
}

// NewDNSCache builds a cache querying the system's configured
// nameservers (falling back to public resolvers if /etc/resolv.conf
// can't be read, e.g. in a container without one).
func NewDNSCache(ttl time.Duration) *DNSCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	servers := []string{"1.1.1.1:53", "8.8.8.8:53"}
	if cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(cfg.Servers) > 0 {
		servers = servers[:0]
		for _, s := range cfg.Servers {
			servers = append(servers, fmt.Sprintf("%s:%s", s, cfg.Port))
		}
	}
	return &DNSCache{
		entries: make(map[string]dnsCacheEntry),
		ttl:     ttl,
		client:  &dns.Client{Timeout: 3 * time.Second},
		servers: servers,
	}
}

// Resolve returns host's IPv4-preferred address: an A record if one
// exists, otherwise the first AAAA record. A cached, unexpired entry
// is returned without a network round-trip.
func (c *DNSCache) Resolve(ctx context.Context, host string) (string, error) {
	c.mu.Lock()
	if e, ok := c.entries[host]; ok && time.Now().Before(e.expires) {
		c.mu.Unlock()
		return e.ip, nil
	}
	c.mu.Unlock()

	ip, err := c.lookup(ctx, host, dns.TypeA)
	if err != nil || ip == "" {
		ip, err = c.lookup(ctx, host, dns.TypeAAAA)
		if err != nil {
			return "", err
		}
	}
	if ip == "" {
		return "", fmt.Errorf("dns: no A or AAAA records for %s", host)
	}

	c.mu.Lock()
	c.entries[host] = dnsCacheEntry{ip: ip, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return ip, nil
}

func (c *DNSCache) lookup(ctx context.Context, host string, qtype uint16) (string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range c.servers {
		resp, _, err := c.client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		for _, rr := range resp.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				return rec.A.String(), nil
			case *dns.AAAA:
				return rec.AAAA.String(), nil
			}
		}
		return "", nil
	}
	return "", lastErr
}

// Warmup pre-resolves hosts in the background so the first real fetch
// to each one doesn't pay the lookup cost; failures are swallowed
// since a cold cache just means the first request resolves normally.
func (c *DNSCache) Warmup(ctx context.Context, hosts []string) {
	for _, h := range hosts {
		host := h
		go func() {
			lctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_, _ = c.Resolve(lctx, host)
		}()
	}
}
