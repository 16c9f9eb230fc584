// Readable-mode article extraction, grounded on the teacher's
// cleaner/readability.go: wrap go-shiori/go-readability and fall back
// to the raw document when extraction fails or produces too little
// text.
package distill

import (
	"log/slog"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

const minContentLength = 50

// ReadableResult is what readable-mode extraction yields: cleaned
// content HTML plus metadata readability already parsed out for us.
type ReadableResult struct {
	ContentHTML string
	TextContent string
	Title       string
	Excerpt     string
	SiteName    string
	Byline      string
}

// ExtractReadable runs the article-extraction algorithm named in
// spec.md §4.8 stage 2, falling back to the unprocessed document when
// the page doesn't parse as an article or the extracted text is
// implausibly short.
func ExtractReadable(rawHTML, sourceURL string) ReadableResult {
	parsedURL, err := url.Parse(sourceURL)
	if err != nil {
		slog.Warn("distill: readable mode falling back, bad source url", "url", sourceURL, "error", err)
		return fallbackArticle(rawHTML)
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("distill: readable extraction failed, using fallback", "url", sourceURL, "error", err)
		return fallbackArticle(rawHTML)
	}
	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Warn("distill: readable extraction too short, using fallback", "url", sourceURL)
		return fallbackArticle(rawHTML)
	}
	return ReadableResult{
		ContentHTML: article.Content,
		TextContent: article.TextContent,
		Title:       article.Title,
		Excerpt:     article.Excerpt,
		SiteName:    article.SiteName,
		Byline:      article.Byline,
	}
}

func fallbackArticle(rawHTML string) ReadableResult {
	return ReadableResult{ContentHTML: rawHTML, TextContent: rawHTML}
}
