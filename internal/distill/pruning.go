// Pruning-mode content extraction: score each top-level body element
// and keep only the ones that look like article content. Grounded
// directly on the teacher's cleaner/pruning.go scoring function, which
// this file keeps close to verbatim since the heuristic transfers
// unchanged from "scrape cleaning" to "distillation."
package distill

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const pruneScoreThreshold = 0.0

// PruneContent keeps only top-level <body> children whose computed
// score clears pruneScoreThreshold, falling back to the full body if
// nothing clears it.
func PruneContent(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		body = doc.Selection
	}
	var kept []string
	body.Children().Each(func(_ int, s *goquery.Selection) {
		if scoreElement(s) > pruneScoreThreshold {
			if html, err := goquery.OuterHtml(s); err == nil {
				kept = append(kept, html)
			}
		}
	})
	if len(kept) == 0 {
		html, err := body.Html()
		if err != nil {
			return rawHTML, nil
		}
		return html, nil
	}
	return strings.Join(kept, "\n"), nil
}

func scoreElement(s *goquery.Selection) float64 {
	text := strings.TrimSpace(s.Text())
	textLen := len(text)
	if textLen == 0 {
		return -10
	}
	html, _ := goquery.OuterHtml(s)
	htmlLen := len(html)
	if htmlLen == 0 {
		htmlLen = 1
	}
	textDensity := float64(textLen) / float64(htmlLen)

	linkTextLen := 0
	s.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkTextLen += len(strings.TrimSpace(a.Text()))
	})
	linkDensity := 0.0
	if textLen > 0 {
		linkDensity = float64(linkTextLen) / float64(textLen)
	}

	tag := goquery.NodeName(s)
	score := textDensity*3.0 + linkDensity*(-2.0) + tagWeight(tag)*1.5 + classIDWeight(s)*1.0
	score += math.Log10(float64(textLen)+1) * 0.5
	return score
}

func tagWeight(tag string) float64 {
	switch strings.ToLower(tag) {
	case "article", "main", "section":
		return 5.0
	case "nav", "footer", "aside", "header":
		return -5.0
	default:
		return 0
	}
}

var positiveClassPatterns = []string{"content", "article", "post", "entry", "body", "main", "text"}
var negativeClassPatterns = []string{
	"sidebar", "ad", "widget", "nav", "menu", "comment", "footer", "header",
	"banner", "popup", "modal", "cookie", "social", "share", "related",
	"recommend", "promo",
}

func classIDWeight(s *goquery.Selection) float64 {
	id, _ := s.Attr("id")
	class, _ := s.Attr("class")
	haystack := strings.ToLower(id + " " + class)
	weight := 0.0
	for _, p := range positiveClassPatterns {
		if strings.Contains(haystack, p) {
			weight += 3.0
			break
		}
	}
	for _, p := range negativeClassPatterns {
		if strings.Contains(haystack, p) {
			weight -= 3.0
			break
		}
	}
	return weight
}
