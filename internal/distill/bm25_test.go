package distill

import "testing"

func TestSplitBlocksSeparatesParagraphs(t *testing.T) {
	content := "First paragraph.\n\nSecond paragraph."
	blocks := SplitBlocks(content)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0].Text != "First paragraph." || blocks[1].Text != "Second paragraph." {
		t.Errorf("unexpected block text: %+v", blocks)
	}
}

func TestSplitBlocksMergesHeadingWithBody(t *testing.T) {
	content := "# Title\n\nBody text here."
	blocks := SplitBlocks(content)
	if len(blocks) != 1 {
		t.Fatalf("expected heading merged with body into 1 block, got %d: %+v", len(blocks), blocks)
	}
}

func TestSplitBlocksPreservesCodeFences(t *testing.T) {
	content := "intro\n\n```go\nfunc a() {\n\nb()\n}\n```\n\noutro"
	blocks := SplitBlocks(content)
	var sawCode bool
	for _, b := range blocks {
		if b.Code {
			sawCode = true
			if b.Text != "```go\nfunc a() {\n\nb()\n}\n```" {
				t.Errorf("code block mangled: %q", b.Text)
			}
		}
	}
	if !sawCode {
		t.Error("expected one block marked Code=true")
	}
}

func TestScoreBM25FavorsMatchingTerms(t *testing.T) {
	blocks := []Block{
		{Text: "cats and dogs are common pets", Order: 0},
		{Text: "quantum mechanics and particle physics", Order: 1},
	}
	scores := ScoreBM25(blocks, "cats pets")
	if scores[0] <= scores[1] {
		t.Errorf("expected block 0 to outscore block 1: %v", scores)
	}
}

func TestScoreBM25EmptyQueryOrBlocks(t *testing.T) {
	if got := ScoreBM25(nil, "query"); len(got) != 0 {
		t.Errorf("expected empty scores for no blocks, got %v", got)
	}
	blocks := []Block{{Text: "something", Order: 0}}
	if got := ScoreBM25(blocks, ""); got[0] != 0 {
		t.Errorf("expected zero score for empty query, got %v", got)
	}
}

func TestFilterByQuestionEmptyInputReturnsNilNotError(t *testing.T) {
	got := FilterByQuestion(nil, "anything")
	if got != nil {
		t.Errorf("expected nil for empty blocks, got %v", got)
	}
}

func TestFilterByQuestionNeverEmptyFallback(t *testing.T) {
	blocks := []Block{
		{Text: "totally unrelated filler one", Order: 0},
		{Text: "totally unrelated filler two", Order: 1},
	}
	// A query sharing no terms scores everything at 0, which is below
	// the keep threshold (scores[i] > 0 required) — this must not
	// return an empty slice.
	got := FilterByQuestion(blocks, "xyzzy plugh")
	if len(got) == 0 {
		t.Error("expected the never-empty fallback to keep at least one block")
	}
}

func TestFilterByQuestionPreservesDocumentOrder(t *testing.T) {
	blocks := []Block{
		{Text: "cats are great pets", Order: 0},
		{Text: "irrelevant filler text here", Order: 1},
		{Text: "dogs are great pets too", Order: 2},
	}
	got := FilterByQuestion(blocks, "cats dogs pets")
	for i := 1; i < len(got); i++ {
		if got[i].Order < got[i-1].Order {
			t.Fatalf("result not in document order: %+v", got)
		}
	}
}
