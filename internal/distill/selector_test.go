package distill

import (
	"strings"
	"testing"
)

func TestApplySelectorNarrowsToMatch(t *testing.T) {
	htmlDoc := `<html><body><div class="nav">nav</div><div class="content">article body</div></body></html>`
	out := ApplySelector(htmlDoc, ".content")
	if !strings.Contains(out, "article body") {
		t.Errorf("expected matched subtree to survive, got: %s", out)
	}
	if strings.Contains(out, "nav") {
		t.Errorf("expected non-matching subtree to be dropped, got: %s", out)
	}
}

func TestApplySelectorFallsBackOnNoMatch(t *testing.T) {
	htmlDoc := `<html><body><p>hello</p></body></html>`
	out := ApplySelector(htmlDoc, ".nonexistent")
	if !strings.Contains(out, "hello") {
		t.Errorf("expected unfiltered fallback when nothing matches, got: %s", out)
	}
}

func TestRemoveSelectorDeletesMatch(t *testing.T) {
	htmlDoc := `<html><body><div class="ad">buy now</div><p>real content</p></body></html>`
	out := RemoveSelector(htmlDoc, ".ad")
	if strings.Contains(out, "buy now") {
		t.Errorf("expected .ad subtree removed, got: %s", out)
	}
	if !strings.Contains(out, "real content") {
		t.Errorf("expected remaining content preserved, got: %s", out)
	}
}
