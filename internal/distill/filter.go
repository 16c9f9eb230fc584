// Structural tag filtering (includeTags/excludeTags), grounded on the
// teacher's cleaner/filter.go.
package distill

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FilterContent removes excludeTags first, then (if includeTags is
// set) keeps only the outer HTML of matching elements, falling back
// to the exclude-filtered document if nothing matches.
func FilterContent(rawHTML string, includeTags, excludeTags []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}
	for _, tag := range excludeTags {
		doc.Find(tag).Remove()
	}
	if len(includeTags) == 0 {
		html, err := doc.Html()
		if err != nil {
			return rawHTML, nil
		}
		return html, nil
	}
	selector := strings.Join(includeTags, ", ")
	var matched []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if html, err := goquery.OuterHtml(s); err == nil {
			matched = append(matched, html)
		}
	})
	if len(matched) == 0 {
		html, err := doc.Html()
		if err != nil {
			return rawHTML, nil
		}
		return html, nil
	}
	return strings.Join(matched, "\n"), nil
}
