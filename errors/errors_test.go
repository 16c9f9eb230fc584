package errors

import (
	"fmt"
	"testing"
)

func TestNewGeneratesRequestID(t *testing.T) {
	e := New(KindNetwork, CodeNetwork, "", "boom", nil)
	if e.RequestID == "" {
		t.Fatal("expected a generated request id when none was supplied")
	}
}

func TestNewKeepsSuppliedRequestID(t *testing.T) {
	e := New(KindNetwork, CodeNetwork, "req-123", "boom", nil)
	if e.RequestID != "req-123" {
		t.Errorf("RequestID = %q, want %q", e.RequestID, "req-123")
	}
}

func TestErrorStringIncludesWrappedErr(t *testing.T) {
	inner := New(KindTimeout, CodeTimeout, "req-1", "deadline hit", nil)
	wrapped := Network("req-1", "upstream failed", inner)
	if got := wrapped.Error(); got == "" {
		t.Fatal("expected non-empty error string")
	}
	if wrapped.Unwrap() != inner {
		t.Error("Unwrap should return the wrapped error")
	}
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	blocked := Blocked("req-1", "challenge page")
	if !Is(blocked, KindBlocked) {
		t.Error("Is should match the exact kind")
	}
	if Is(blocked, KindNetwork) {
		t.Error("Is should not match a different kind")
	}
	if !Is(fmt.Errorf("fetch failed: %w", blocked), KindBlocked) {
		t.Error("Is should match the kind of a wrapped error")
	}
	if Is(nil, KindBlocked) {
		t.Error("Is should return false for nil errors")
	}
}

func TestToDetailSanitizesMarkupAndSetsHints(t *testing.T) {
	e := SSRFBlocked("req-9", `<script>"alert"</script>`)
	d := e.ToDetail()

	if d.Message == e.Message {
		t.Error("expected ToDetail to sanitize markup out of the message")
	}
	for _, c := range []byte{'<', '>', '"', '\''} {
		for _, r := range d.Message {
			if byte(r) == c {
				t.Fatalf("sanitized message still contains %q: %s", c, d.Message)
			}
		}
	}
	if d.Hint == "" {
		t.Error("expected an SSRF-specific hint")
	}
	if d.RequestID != "req-9" {
		t.Errorf("RequestID = %q, want req-9", d.RequestID)
	}
}

func TestConstructorsSetExpectedKindAndCode(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		kind Kind
		code Code
	}{
		{"WebPeel", WebPeel("", "bad input"), KindWebPeel, CodeInvalidInput},
		{"InvalidURL", InvalidURL("", "bad url"), KindWebPeel, CodeInvalidURL},
		{"Timeout", Timeout("", "slow"), KindTimeout, CodeTimeout},
		{"Blocked", Blocked("", "blocked"), KindBlocked, CodeBlocked},
		{"Internal", Internal("", "oops", nil), KindWebPeel, CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Kind != tc.kind {
				t.Errorf("Kind = %v, want %v", tc.err.Kind, tc.kind)
			}
			if tc.err.Code != tc.code {
				t.Errorf("Code = %v, want %v", tc.err.Code, tc.code)
			}
		})
	}
}
