package domain

import (
	"net/url"
	"testing"
)

func TestHackerNewsMatches(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"https://news.ycombinator.com/item?id=123", true},
		{"https://www.news.ycombinator.com/item?id=123", true},
		{"https://news.ycombinator.com/item", false},
		{"https://news.ycombinator.com/newest", false},
		{"https://example.com/item?id=123", false},
	}
	ex := hackerNewsExtractor{}
	for _, tc := range cases {
		u, err := url.Parse(tc.raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := ex.Matches(u); got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestStripHNHTML(t *testing.T) {
	got := stripHNHTML("<p>hello &amp; goodbye &gt; &lt;tag&gt;")
	want := "hello & goodbye >"
	if got != want {
		t.Errorf("stripHNHTML = %q, want %q", got, want)
	}
}
