// Link/image/Open-Graph metadata extraction, grounded on the teacher's
// cleaner/extract.go, extended to also read schema.org metadata and
// parse OG-supplied dates with araddon/dateparse (a pack-sourced
// dependency with no teacher equivalent).
package distill

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// Link is a discovered hyperlink, classified relative to the page's
// own host.
type Link struct {
	URL      string
	Text     string
	Internal bool
}

// ExtractLinks walks every <a href> in rawHTML, deduplicating and
// skipping non-http(s) schemes.
func ExtractLinks(rawHTML, pageURL string) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)
	var links []Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := resolveURL(base, href)
		if resolved == "" || seen[resolved] {
			return
		}
		u, err := url.Parse(resolved)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		seen[resolved] = true
		internal := base != nil && strings.EqualFold(u.Host, base.Host)
		links = append(links, Link{URL: resolved, Text: strings.TrimSpace(s.Text()), Internal: internal})
	})
	return links, nil
}

// ExtractImages walks every <img src>, skipping data: URIs and deduping.
func ExtractImages(rawHTML, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)
	var images []string
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if strings.HasPrefix(src, "data:") {
			return
		}
		resolved := resolveURL(base, src)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		images = append(images, resolved)
	})
	return images, nil
}

func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

// OGMetadata is the open-graph / schema.org metadata surfaced in
// PeelResult.Metadata.
type OGMetadata struct {
	Title       string
	Description string
	Image       string
	Type        string
	SiteName    string
	Author      string
	Language    string
	PublishedAt *time.Time
}

// ExtractOGMetadata reads og:*, standard meta tags, and a best-effort
// schema.org datePublished value.
func ExtractOGMetadata(rawHTML string) (OGMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return OGMetadata{}, err
	}
	meta := OGMetadata{}
	meta.Title = firstNonEmpty(
		metaContent(doc, "og:title"),
		doc.Find("title").First().Text(),
	)
	meta.Description = firstNonEmpty(
		metaContent(doc, "og:description"),
		metaNameContent(doc, "description"),
	)
	meta.Image = metaContent(doc, "og:image")
	meta.Type = metaContent(doc, "og:type")
	meta.SiteName = metaContent(doc, "og:site_name")
	meta.Author = firstNonEmpty(metaNameContent(doc, "author"), metaContent(doc, "article:author"))
	meta.Language, _ = doc.Find("html").First().Attr("lang")

	raw := firstNonEmpty(
		metaContent(doc, "article:published_time"),
		metaNameContent(doc, "date"),
		doc.Find("[itemprop='datePublished']").First().AttrOr("content", ""),
	)
	if raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			meta.PublishedAt = &t
		}
	}
	return meta, nil
}

func metaContent(doc *goquery.Document, property string) string {
	return doc.Find(`meta[property="` + property + `"]`).First().AttrOr("content", "")
}

func metaNameContent(doc *goquery.Document, name string) string {
	return doc.Find(`meta[name="` + name + `"]`).First().AttrOr("content", "")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
