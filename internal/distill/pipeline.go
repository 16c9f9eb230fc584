// Package distill implements the content-distillation pipeline of
// spec.md §4.8: parse, readable/pruning extraction, format conversion,
// token-budget pruning, BM25 question filtering, schema-template
// extraction, and metrics. It is grounded on the teacher's
// cleaner/pipeline.go end-to-end flow, generalized from a single
// scrape-cleaning entrypoint into WebPeel's richer option surface.
package distill

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Mode selects the stage-2 extraction strategy.
type Mode string

const (
	ModeRaw         Mode = "raw"         // skip extraction, just parse/filter
	ModeReadability Mode = "readability" // go-shiori article extraction
	ModePruning     Mode = "pruning"     // density-scored element pruning
	ModeAuto        Mode = "auto"        // race readability vs pruning, keep the better one
)

// Format selects the stage-3 output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatHTML     Format = "html"
	FormatClean    Format = "clean"
)

// Options configures one Distill call; every field here corresponds to
// an option named in spec.md §6.
type Options struct {
	Format          Format
	Mode            Mode
	Selector        string
	Exclude         string
	IncludeTags     []string
	ExcludeTags     []string
	SourceIsMarkdown bool

	MaxTokens int // 0 means unbounded ("raw"/"lite" callers set this to 0)
	Question  string
	SchemaName   string
	SchemaFields map[string]string
	Chunk        bool
	ChunkTokens  int
}

// TokenInfo mirrors the savings metric the teacher's pipeline reports.
type TokenInfo struct {
	OriginalEstimate int
	CleanedEstimate  int
	SavingsPercent   int
}

// Result is everything the distillation stage hands back to the
// caller (package webpeel assembles this into the public PeelResult).
type Result struct {
	Content     string
	Format      Format
	Metadata    OGMetadata
	Links       []Link
	Images      []string
	Tokens      TokenInfo
	WordCount   int
	ReadingSecs int
	Fingerprint string
	SchemaData  map[string]string
	Chunks      []Chunk
	CleaningMs  int64
}

var markdownConverter = NewMarkdownConverter()

// Distill runs the full pipeline over rawHTML (or raw markdown, if
// opts.SourceIsMarkdown is set) fetched from sourceURL.
func Distill(rawHTML, sourceURL string, opts Options) (Result, error) {
	start := time.Now()
	if opts.Format == "" {
		opts.Format = FormatMarkdown
	}
	if opts.Mode == "" {
		opts.Mode = ModeReadability
	}

	html := rawHTML
	if opts.SourceIsMarkdown {
		html = MarkdownSourceToHTML(rawHTML)
	}

	originalTokens := estimateHTMLTokens(html)

	// Stage 1: parse / structural filter.
	filtered, err := FilterContent(html, opts.IncludeTags, opts.ExcludeTags)
	if err != nil {
		filtered = html
	}
	if opts.Selector != "" {
		filtered = ApplySelector(filtered, opts.Selector)
	}
	if opts.Exclude != "" {
		filtered = RemoveSelector(filtered, opts.Exclude)
	}

	// Links/images are extracted from the filtered, pre-extraction
	// document so selector/exclude narrow them too; OG metadata is read
	// from the full, unfiltered document.
	links, _ := ExtractLinks(filtered, sourceURL)
	images, _ := ExtractImages(filtered, sourceURL)
	meta, _ := ExtractOGMetadata(html)

	// Stage 2: extraction mode.
	contentHTML, plainText := runExtraction(filtered, sourceURL, opts.Mode)
	if meta.Title == "" {
		meta.Title = extractedTitle(contentHTML)
	}

	// Stage 3: format conversion.
	content, err := formatContent(contentHTML, plainText, sourceURL, opts.Format)
	if err != nil {
		return Result{}, err
	}

	// Stage 4: token budget.
	if opts.MaxTokens > 0 {
		content = pruneToBudget(content, opts.MaxTokens)
	}

	var schemaData map[string]string
	blocks := SplitBlocks(content)

	// Stage 5: BM25 question filter.
	if opts.Question != "" {
		kept := FilterByQuestion(blocks, opts.Question)
		content = joinBlockText(kept)
		blocks = kept
	}

	// Stage 6: schema-template / field extraction.
	if opts.SchemaName != "" || len(opts.SchemaFields) > 0 {
		fields := opts.SchemaFields
		if fields == nil {
			fields = SchemaTemplates[opts.SchemaName]
		}
		if fields != nil {
			schemaData = ExtractSchema(blocks, fields)
		}
	}

	var chunks []Chunk
	if opts.Chunk {
		chunks = ChunkContent(content, opts.ChunkTokens)
	}

	cleanedTokens := EstimateTokens(content)
	savings := 0
	if originalTokens > 0 {
		savings = int(100 - (float64(cleanedTokens)/float64(originalTokens))*100)
		if savings < 0 {
			savings = 0
		}
	}
	words := WordCount(content)

	return Result{
		Content:  content,
		Format:   opts.Format,
		Metadata: meta,
		Links:    links,
		Images:   images,
		Tokens: TokenInfo{
			OriginalEstimate: originalTokens,
			CleanedEstimate:  cleanedTokens,
			SavingsPercent:   savings,
		},
		WordCount:   words,
		ReadingSecs: ReadingTimeSeconds(words),
		Fingerprint: Fingerprint(content),
		SchemaData:  schemaData,
		Chunks:      chunks,
		CleaningMs:  time.Since(start).Milliseconds(),
	}, nil
}

func runExtraction(filteredHTML, sourceURL string, mode Mode) (contentHTML, plainText string) {
	switch mode {
	case ModeRaw:
		return filteredHTML, stripTagsToText(filteredHTML)
	case ModePruning:
		pruned, err := PruneContent(filteredHTML)
		if err != nil {
			return filteredHTML, stripTagsToText(filteredHTML)
		}
		return pruned, stripTagsToText(pruned)
	case ModeAuto:
		return autoExtract(filteredHTML, sourceURL)
	default: // ModeReadability
		r := ExtractReadable(filteredHTML, sourceURL)
		return r.ContentHTML, r.TextContent
	}
}

// autoExtract runs readability and pruning and keeps the longer
// result, suppressing a 10x-outlier winner as noise — grounded on the
// teacher's cleaner/pipeline.go autoExtract.
func autoExtract(filteredHTML, sourceURL string) (string, string) {
	type out struct {
		html, text string
	}
	readCh := make(chan out, 1)
	pruneCh := make(chan out, 1)
	go func() {
		r := ExtractReadable(filteredHTML, sourceURL)
		readCh <- out{r.ContentHTML, r.TextContent}
	}()
	go func() {
		p, err := PruneContent(filteredHTML)
		if err != nil {
			pruneCh <- out{filteredHTML, stripTagsToText(filteredHTML)}
			return
		}
		pruneCh <- out{p, stripTagsToText(p)}
	}()
	r := <-readCh
	p := <-pruneCh

	rLen, pLen := len(r.text), len(p.text)
	if rLen == 0 {
		return p.html, p.text
	}
	if pLen == 0 {
		return r.html, r.text
	}
	// Prefer the longer one, but distrust a winner more than 10x longer
	// than the loser — that's usually boilerplate, not content.
	if pLen > rLen {
		if pLen > rLen*10 {
			return r.html, r.text
		}
		return p.html, p.text
	}
	if rLen > pLen*10 {
		return p.html, p.text
	}
	return r.html, r.text
}

func formatContent(contentHTML, plainText, sourceURL string, format Format) (string, error) {
	switch format {
	case FormatText:
		if plainText != "" {
			return plainText, nil
		}
		return stripTagsToText(contentHTML), nil
	case FormatHTML, FormatClean:
		return contentHTML, nil
	default: // markdown
		md, err := ToMarkdown(markdownConverter, contentHTML, hostOf(sourceURL))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(md), nil
	}
}

// pruneToBudget drops trailing blocks (lowest positional priority)
// until the content fits under maxTokens, per spec.md §4.8 stage 4.
func pruneToBudget(content string, maxTokens int) string {
	if EstimateTokens(content) <= maxTokens {
		return content
	}
	blocks := SplitBlocks(content)
	var kept []string
	tokens := 0
	for _, b := range blocks {
		t := EstimateTokens(b.Text)
		if tokens+t > maxTokens && len(kept) > 0 {
			break
		}
		kept = append(kept, b.Text)
		tokens += t
	}
	return strings.Join(kept, "\n\n")
}

func stripTagsToText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	return strings.TrimSpace(doc.Text())
}

func extractedTitle(contentHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return ""
	}
	if h1 := doc.Find("h1").First().Text(); strings.TrimSpace(h1) != "" {
		return strings.TrimSpace(h1)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func estimateHTMLTokens(rawHTML string) int {
	return EstimateTokens(stripTagsToText(rawHTML))
}

func hostOf(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL
	}
	rest := rawURL[idx+3:]
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		return rest[:slash]
	}
	return rest
}
