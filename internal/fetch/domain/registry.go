// Package domain implements spec.md §4.5's domain-API shortcut rung:
// a small registry of per-site extractors that hit a structured API
// instead of fetching and rendering HTML, each bounded to a 15-second
// timeout and required to return nil on any failure so the escalator
// can fall through to the simple-HTTP rung without surfacing an error.
//
// Grounded on the teacher's cmd/purify-mcp tool-registry pattern (a
// map of name to handler function, dispatched by lookup) and on
// other_examples/unfurlist's FetchFunc-per-host registry idea,
// generalized from oEmbed/OpenGraph unfurling into full structured
// content extraction.
package domain

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is a domain-API extraction's structured payload. Content is
// the cleaned textual body the rest of the pipeline treats like any
// other fetched document; Structured carries the API's native fields
// for callers that want them directly.
type Result struct {
	Title      string
	Content    string
	Author     string
	PublishedAt string
	URL        string
	Structured map[string]any
}

// cleanContentThreshold is spec.md §4.5's minimum useful content
// length; extractors returning less are treated as a miss.
const cleanContentThreshold = 50

const extractorTimeout = 15 * time.Second

// Extractor matches one family of URLs and extracts structured
// content for them via that site's API.
type Extractor interface {
	Matches(u *url.URL) bool
	Extract(ctx context.Context, client *http.Client, u *url.URL) (*Result, error)
}

// Registry holds the ordered set of known extractors; the first match
// wins.
type Registry struct {
	extractors []Extractor
}

// NewRegistry returns a registry pre-populated with the extractor
// families spec.md §4.5 names: social, forum, code-host, aggregator.
func NewRegistry() *Registry {
	return &Registry{extractors: []Extractor{
		hackerNewsExtractor{},
		githubExtractor{},
		discourseExtractor{},
		oEmbedExtractor{},
	}}
}

// Lookup returns the first extractor whose Matches is true, or nil.
func (r *Registry) Lookup(rawURL string) Extractor {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	for _, e := range r.extractors {
		if e.Matches(u) {
			return e
		}
	}
	return nil
}

// Extract runs e against rawURL, enforcing the 15s timeout and the
// clean-content floor. Any failure — network error, malformed
// response, or too-short content — yields nil: a soft miss,
// never a hard error, so the caller falls through to the next rung.
func Extract(ctx context.Context, client *http.Client, e Extractor, rawURL string) *Result {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, extractorTimeout)
	defer cancel()
	res, err := e.Extract(ctx, client, u)
	if err != nil || res == nil {
		return nil
	}
	if len(strings.TrimSpace(res.Content)) < cleanContentThreshold {
		return nil
	}
	return res
}
