package domain

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"
)

func TestNewRegistryMatchesKnownHosts(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		url      string
		wantSome bool
	}{
		{"https://news.ycombinator.com/item?id=123", true},
		{"https://github.com/golang/go/issues/1", true},
		{"https://github.com/golang/go", true},
		{"https://example.com/some/random/page", false},
	}
	for _, tc := range cases {
		got := reg.Lookup(tc.url) != nil
		if got != tc.wantSome {
			t.Errorf("Lookup(%q) matched = %v, want %v", tc.url, got, tc.wantSome)
		}
	}
}

func TestLookupReturnsNilOnUnparsableURL(t *testing.T) {
	reg := NewRegistry()
	if reg.Lookup("://bad") != nil {
		t.Error("expected nil for an unparsable URL")
	}
}

type fakeExtractor struct {
	result *Result
	err    error
	delay  time.Duration
}

func (f fakeExtractor) Matches(u *url.URL) bool { return true }

func (f fakeExtractor) Extract(ctx context.Context, client *http.Client, u *url.URL) (*Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func TestExtractReturnsResultAboveThreshold(t *testing.T) {
	ex := fakeExtractor{result: &Result{Content: "this is plenty of clean extracted content, well above the floor"}}
	got := Extract(context.Background(), http.DefaultClient, ex, "https://example.com/")
	if got == nil {
		t.Fatal("expected a non-nil result")
	}
}

func TestExtractSoftMissOnShortContent(t *testing.T) {
	ex := fakeExtractor{result: &Result{Content: "too short"}}
	got := Extract(context.Background(), http.DefaultClient, ex, "https://example.com/")
	if got != nil {
		t.Error("expected nil for content under the clean-content floor")
	}
}

func TestExtractSoftMissOnExtractorError(t *testing.T) {
	ex := fakeExtractor{err: context.DeadlineExceeded}
	got := Extract(context.Background(), http.DefaultClient, ex, "https://example.com/")
	if got != nil {
		t.Error("expected nil when the extractor errors, not a propagated error")
	}
}

func TestExtractSoftMissOnNilResult(t *testing.T) {
	ex := fakeExtractor{result: nil}
	got := Extract(context.Background(), http.DefaultClient, ex, "https://example.com/")
	if got != nil {
		t.Error("expected nil when the extractor returns a nil result")
	}
}

func TestExtractEnforcesTimeout(t *testing.T) {
	ex := fakeExtractor{delay: 50 * time.Millisecond, result: &Result{Content: "irrelevant since ctx cancels first"}}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	got := Extract(ctx, http.DefaultClient, ex, "https://example.com/")
	if got != nil {
		t.Error("expected nil when the context deadline elapses before the extractor returns")
	}
}
