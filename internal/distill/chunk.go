// Post-hoc RAG chunking (the `chunk` option named in spec.md §6). New
// code: the teacher has no equivalent since it returns a single
// cleaned document, not a chunked corpus for embedding pipelines.
// Chunking reuses the same block splitter as the BM25 filter so chunk
// boundaries always fall on paragraph/code-block edges.
package distill

import "strings"

// Chunk is a single RAG-ready slice of the distilled document.
type Chunk struct {
	Index int
	Text  string
	Tokens int
}

// ChunkContent splits content into blocks and packs them greedily into
// chunks no larger than maxTokens, never splitting a block across two
// chunks (a single oversized block becomes its own chunk).
func ChunkContent(content string, maxTokens int) []Chunk {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	blocks := SplitBlocks(content)
	var chunks []Chunk
	var cur []string
	curTokens := 0
	flush := func() {
		if len(cur) == 0 {
			return
		}
		text := strings.Join(cur, "\n\n")
		chunks = append(chunks, Chunk{Index: len(chunks), Text: text, Tokens: EstimateTokens(text)})
		cur = nil
		curTokens = 0
	}
	for _, b := range blocks {
		t := EstimateTokens(b.Text)
		if curTokens > 0 && curTokens+t > maxTokens {
			flush()
		}
		cur = append(cur, b.Text)
		curTokens += t
	}
	flush()
	return chunks
}
