// Reference-style citation rendering, grounded on the teacher's
// cleaner/citations.go: rewrite inline markdown links into numbered
// references with a footer block, deduplicated by URL.
package distill

import (
	"fmt"
	"regexp"
	"strings"
)

var inlineLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)

// ConvertToCitations rewrites inline [text](url) markdown links into
// numbered [text][n] references, appending a footer of [n]: url
// entries deduplicated by URL.
func ConvertToCitations(markdown string) string {
	order := make([]string, 0)
	index := make(map[string]int)

	rewritten := inlineLinkRe.ReplaceAllStringFunc(markdown, func(m string) string {
		groups := inlineLinkRe.FindStringSubmatch(m)
		text, url := groups[1], groups[2]
		n, ok := index[url]
		if !ok {
			order = append(order, url)
			n = len(order)
			index[url] = n
		}
		return fmt.Sprintf("[%s][%d]", text, n)
	})
	if len(order) == 0 {
		return markdown
	}
	var footer strings.Builder
	footer.WriteString("\n\n---\n")
	for i, u := range order {
		fmt.Fprintf(&footer, "[%d]: %s\n", i+1, u)
	}
	return rewritten + footer.String()
}
