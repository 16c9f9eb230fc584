package fetch

import (
	"context"
	"testing"
	"time"
)

func TestNewDNSCacheDefaultsTTL(t *testing.T) {
	c := NewDNSCache(0)
	if c.ttl != 5*time.Minute {
		t.Errorf("default ttl = %v, want 5m", c.ttl)
	}
	if len(c.servers) == 0 {
		t.Error("expected at least one fallback nameserver configured")
	}
}

func TestDNSCacheResolveReturnsCachedEntryWithoutLookup(t *testing.T) {
	c := NewDNSCache(time.Hour)
	c.entries["cached.example.com"] = dnsCacheEntry{ip: "203.0.113.5", expires: time.Now().Add(time.Hour)}

	ip, err := c.Resolve(context.Background(), "cached.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if ip != "203.0.113.5" {
		t.Errorf("Resolve = %q, want the cached IP", ip)
	}
}

func TestDNSCacheWarmupDoesNotBlock(t *testing.T) {
	c := NewDNSCache(time.Minute)
	start := time.Now()
	c.Warmup(context.Background(), []string{"example.com", "example.org"})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Warmup blocked for %v, want it to return immediately", elapsed)
	}
}
