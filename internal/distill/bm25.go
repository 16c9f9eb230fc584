// BM25 relevance scoring. No BM25 or general IR-scoring library
// appears anywhere in the retrieved example pack (see DESIGN.md), so
// this is a small dependency-free implementation in the style of the
// teacher's own hand-rolled algorithms (compare simhash/simhash.go's
// from-scratch fingerprinting).
package distill

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Block is a unit of content the BM25 filter scores independently —
// a paragraph, a heading-plus-body group, or a preserved code block.
type Block struct {
	Text   string
	Code   bool // true for a fenced code block, preserved verbatim
	Order  int
}

var blockSplitRe = regexp.MustCompile(`\n{2,}`)
var codeFenceRe = regexp.MustCompile("(?s)```.*?```")
var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// SplitBlocks splits markdown/text content into blocks at paragraph
// boundaries, keeping a heading merged with the body that follows it
// and preserving fenced code blocks as single, unsplit units (spec.md
// §4.8 stage 5).
func SplitBlocks(content string) []Block {
	// Protect code fences from paragraph splitting by extracting them
	// first and splicing placeholder tokens back in after the split.
	var codeBlocks []string
	protected := codeFenceRe.ReplaceAllStringFunc(content, func(m string) string {
		codeBlocks = append(codeBlocks, m)
		return "\x00CODEBLOCK" + strconv.Itoa(len(codeBlocks)-1) + "\x00"
	})

	raw := blockSplitRe.Split(protected, -1)
	var blocks []Block
	order := 0
	i := 0
	for i < len(raw) {
		text := strings.TrimSpace(raw[i])
		if text == "" {
			i++
			continue
		}
		if idx, ok := codePlaceholderIndex(text); ok {
			blocks = append(blocks, Block{Text: codeBlocks[idx], Code: true, Order: order})
			order++
			i++
			continue
		}
		// Merge a lone heading line with the next block, if any.
		if isHeadingLine(text) && i+1 < len(raw) {
			next := strings.TrimSpace(raw[i+1])
			if next != "" {
				if idx, ok := codePlaceholderIndex(next); ok {
					blocks = append(blocks, Block{Text: text + "\n\n" + codeBlocks[idx], Order: order})
				} else {
					blocks = append(blocks, Block{Text: text + "\n\n" + next, Order: order})
				}
				order++
				i += 2
				continue
			}
		}
		blocks = append(blocks, Block{Text: text, Order: order})
		order++
		i++
	}
	return blocks
}

func isHeadingLine(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "#")
}

func codePlaceholderIndex(s string) (int, bool) {
	if !strings.HasPrefix(s, "\x00CODEBLOCK") || !strings.HasSuffix(s, "\x00") {
		return 0, false
	}
	n := strings.TrimSuffix(strings.TrimPrefix(s, "\x00CODEBLOCK"), "\x00")
	v, err := strconv.Atoi(n)
	if err != nil {
		return 0, false
	}
	return v, true
}

func tokenize(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// ScoreBM25 scores each block against the query terms, following the
// standard Okapi BM25 formula with k1=1.2, b=0.75.
func ScoreBM25(blocks []Block, query string) []float64 {
	queryTerms := tokenize(query)
	n := len(blocks)
	scores := make([]float64, n)
	if n == 0 || len(queryTerms) == 0 {
		return scores
	}

	docTokens := make([][]string, n)
	docLen := make([]int, n)
	totalLen := 0
	df := make(map[string]int)
	for i, b := range blocks {
		toks := tokenize(b.Text)
		docTokens[i] = toks
		docLen[i] = len(toks)
		totalLen += len(toks)
		seen := make(map[string]bool)
		for _, t := range toks {
			if !seen[t] {
				df[t]++
				seen[t] = true
			}
		}
	}
	avgLen := float64(totalLen) / float64(n)
	if avgLen == 0 {
		avgLen = 1
	}

	idf := make(map[string]float64)
	for _, term := range queryTerms {
		if _, ok := idf[term]; ok {
			continue
		}
		d := df[term]
		idf[term] = math.Log(1 + (float64(n)-float64(d)+0.5)/(float64(d)+0.5))
	}

	for i, toks := range docTokens {
		tf := make(map[string]int)
		for _, t := range toks {
			tf[t]++
		}
		score := 0.0
		dl := float64(docLen[i])
		for _, term := range queryTerms {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			num := f * (bm25K1 + 1)
			den := f + bm25K1*(1-bm25B+bm25B*dl/avgLen)
			score += idf[term] * (num / den)
		}
		scores[i] = score
	}
	return scores
}

// FilterByQuestion implements spec.md §4.8 stage 5: score blocks
// against question, keep those scoring at least mean*0.5, preserve
// document order, and if everything would be dropped keep the top 3
// as a never-empty fallback. Per Open Question (b), an empty input
// returns nil (an empty result, not an error).
func FilterByQuestion(blocks []Block, question string) []Block {
	if len(blocks) == 0 {
		return nil
	}
	scores := ScoreBM25(blocks, question)
	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))
	threshold := mean * 0.5

	var kept []scoredBlock
	for i, b := range blocks {
		if scores[i] >= threshold && scores[i] > 0 {
			kept = append(kept, scoredBlock{b, scores[i]})
		}
	}
	if len(kept) == 0 {
		// Never-empty fallback: top 3 by score, restored to document order.
		ranked := make([]scoredBlock, len(blocks))
		for i, b := range blocks {
			ranked[i] = scoredBlock{b, scores[i]}
		}
		sortByScoreDesc(ranked)
		top := ranked
		if len(top) > 3 {
			top = top[:3]
		}
		sortByOrder(top)
		out := make([]Block, len(top))
		for i, s := range top {
			out[i] = s.block
		}
		return out
	}
	out := make([]Block, len(kept))
	for i, s := range kept {
		out[i] = s.block
	}
	return out
}

type scoredBlock struct {
	block Block
	score float64
}

func sortByScoreDesc(s []scoredBlock) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].score > s[j-1].score; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func sortByOrder(s []scoredBlock) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].block.Order < s[j-1].block.Order; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
