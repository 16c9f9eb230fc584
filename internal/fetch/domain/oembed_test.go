package domain

import (
	"net/url"
	"testing"
)

func TestOEmbedMatches(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=abc123", true},
		{"https://youtu.be/abc123", true},
		{"https://vimeo.com/12345", true},
		{"https://example.com/watch?v=abc123", false},
	}
	ex := oEmbedExtractor{}
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
