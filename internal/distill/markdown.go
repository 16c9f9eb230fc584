// Markdown formatting, grounded on the teacher's cleaner/markdown.go.
// html-to-markdown/v2's base plugin strips script/style/iframe/etc.,
// commonmark covers headings/lists/code blocks, and the table plugin
// is tuned for minimal cell padding to save output tokens.
package distill

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	gomarkdown "github.com/gomarkdown/markdown"
	gmhtml "github.com/gomarkdown/markdown/html"
	gmparser "github.com/gomarkdown/markdown/parser"
)

// NewMarkdownConverter builds a *converter.Converter configured for
// WebPeel's token-conscious markdown output.
func NewMarkdownConverter() *converter.Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal)),
		),
	)
	return conv
}

// ToMarkdown converts cleaned HTML into markdown, resolving relative
// URLs against domain.
func ToMarkdown(conv *converter.Converter, htmlContent, domain string) (string, error) {
	return conv.ConvertString(htmlContent, converter.WithDomain(domain))
}

// MarkdownSourceToHTML converts content that arrived already in
// markdown (content-type text/markdown, or a .md URL suffix) into
// HTML, so the rest of the distillation pipeline (parse/readable/
// prune/format) can operate uniformly regardless of the source
// format. This is a SUPPLEMENTED feature: the teacher's pipeline only
// ever receives HTML to convert, never pre-formatted markdown.
func MarkdownSourceToHTML(raw string) string {
	exts := gmparser.CommonExtensions | gmparser.AutoHeadingIDs
	p := gmparser.NewWithExtensions(exts)
	doc := p.Parse([]byte(raw))
	renderer := gmhtml.NewRenderer(gmhtml.RendererOptions{Flags: gmhtml.CommonFlags})
	out := strings.TrimSpace(string(gomarkdown.Render(doc, renderer)))
	if out == "" {
		return raw
	}
	return out
}
