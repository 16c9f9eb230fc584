package fetch

import (
	"context"
	"testing"
	"time"
)

func TestDomainLimiterAllowsBurstImmediately(t *testing.T) {
	d := newDomainLimiter(1, 3)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := d.wait(ctx, "example.com"); err != nil {
			t.Fatalf("unexpected error on burst token %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("burst tokens took %v, want near-instant", elapsed)
	}
}

func TestDomainLimiterIsPerHost(t *testing.T) {
	d := newDomainLimiter(1, 1)
	ctx := context.Background()
	if err := d.wait(ctx, "a.example.com"); err != nil {
		t.Fatal(err)
	}
	// A different host's bucket is independent and should not be drained.
	if err := d.wait(ctx, "b.example.com"); err != nil {
		t.Fatal(err)
	}
}

func TestDomainLimiterRespectsContextCancellation(t *testing.T) {
	d := newDomainLimiter(0.1, 1)
	ctx := context.Background()
	if err := d.wait(ctx, "slow.example.com"); err != nil {
		t.Fatal(err)
	}
	// Bucket now empty; a near-expired context should fail to wait it out.
	shortCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.wait(shortCtx, "slow.example.com"); err == nil {
		t.Error("expected a context-deadline error waiting on an empty bucket")
	}
}

func TestDomainLimiterDefaultsOnInvalidConfig(t *testing.T) {
	d := newDomainLimiter(0, 0)
	if d.rps != 5 || d.burst != 10 {
		t.Errorf("defaults = (%v, %d), want (5, 10)", d.rps, d.burst)
	}
}
