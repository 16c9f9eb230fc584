// Raw CSS-selector subsetting via cascadia, independent of goquery's
// own selector engine, grounded on the teacher's cleaner/selector.go.
// Used for the `selector`/`exclude` DOM-subsetting options (spec.md
// §4.8 stage 1) when the caller supplies a selector rather than a
// named include/exclude tag list.
package distill

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ApplySelector narrows rawHTML to the subtree(s) matching selector,
// falling back to the unfiltered document if parsing fails or nothing
// matches.
func ApplySelector(rawHTML, selector string) string {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return rawHTML
	}
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	matches := cascadia.QueryAll(doc, sel)
	if len(matches) == 0 {
		return rawHTML
	}
	var b strings.Builder
	for _, m := range matches {
		html.Render(&b, m)
	}
	return b.String()
}

// RemoveSelector deletes every subtree matching selector, returning
// the remaining document. Used for the `exclude` option.
func RemoveSelector(rawHTML, selector string) string {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return rawHTML
	}
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	for _, n := range cascadia.QueryAll(doc, sel) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	var b strings.Builder
	html.Render(&b, doc)
	return b.String()
}
