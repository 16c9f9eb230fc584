package distill

import (
	"strings"
	"testing"
)

func TestConvertToCitationsNumbersAndDedups(t *testing.T) {
	md := "See [docs](https://example.com/a) and again [here](https://example.com/a) plus [other](https://example.com/b)."
	out := ConvertToCitations(md)

	if !strings.Contains(out, "[docs][1]") {
		t.Errorf("expected first link rewritten to [docs][1], got: %s", out)
	}
	if !strings.Contains(out, "[here][1]") {
		t.Errorf("expected repeated URL to reuse reference 1, got: %s", out)
	}
	if !strings.Contains(out, "[other][2]") {
		t.Errorf("expected second distinct URL to get reference 2, got: %s", out)
	}
	if !strings.Contains(out, "[1]: https://example.com/a") || !strings.Contains(out, "[2]: https://example.com/b") {
		t.Errorf("expected a footer listing both references, got: %s", out)
	}
}

func TestConvertToCitationsNoLinksIsNoop(t *testing.T) {
	md := "plain text with no links"
	if got := ConvertToCitations(md); got != md {
		t.Errorf("expected no-op on link-free input, got: %s", got)
	}
}
