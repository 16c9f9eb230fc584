package fetch

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	webpeelerrors "github.com/use-agent/webpeel/errors"
)

func TestShouldEscalateOnBlockedKind(t *testing.T) {
	if !shouldEscalate(webpeelerrors.Blocked("req-1", "challenge detected")) {
		t.Error("expected a BlockedError to escalate")
	}
}

func TestShouldEscalateNotOnNetworkOrTimeout(t *testing.T) {
	if shouldEscalate(webpeelerrors.Network("req-1", "connection reset", nil)) {
		t.Error("NetworkError should not trigger escalation")
	}
	if shouldEscalate(webpeelerrors.Timeout("req-1", "deadline exceeded")) {
		t.Error("TimeoutError should not trigger escalation")
	}
}

func TestShouldEscalateFalseOnPlainError(t *testing.T) {
	if shouldEscalate(errors.New("plain failure")) {
		t.Error("a plain, non-taxonomy error should not escalate")
	}
	if shouldEscalate(nil) {
		t.Error("nil error should not escalate")
	}
}

func TestHostOfExtractsHostname(t *testing.T) {
	if got := hostOf("https://Example.com:8080/path"); got != "example.com" {
		t.Errorf("hostOf = %q, want example.com", got)
	}
}

func TestHostOfEmptyOnUnparsableURL(t *testing.T) {
	if got := hostOf("://not a url"); got != "" {
		t.Errorf("hostOf = %q, want empty string", got)
	}
}

func TestStartingRungClockedByCloakedAndRender(t *testing.T) {
	e := &Escalator{memory: NewDomainMemory(time.Hour)}
	defer e.memory.Stop()

	if got := e.startingRung(Request{Cloaked: true}); got != rungTLS {
		t.Errorf("Cloaked request should start at rungTLS, got %v", got)
	}
	if got := e.startingRung(Request{Render: true}); got != rungBrowser {
		t.Errorf("Render request should start at rungBrowser, got %v", got)
	}
	if got := e.startingRung(Request{Render: true, Stealth: true}); got != rungStealth {
		t.Errorf("Render+Stealth request should start at rungStealth, got %v", got)
	}
}

func TestStartingRungUsesDomainMemory(t *testing.T) {
	e := &Escalator{memory: NewDomainMemory(time.Hour)}
	defer e.memory.Stop()
	e.memory.Set("example.com", int(rungStealth))

	got := e.startingRung(Request{NormalizedURL: "https://example.com/"})
	if got != rungStealth {
		t.Errorf("expected remembered rungStealth, got %v", got)
	}
}

func TestStartingRungDefaultsToDomainAPI(t *testing.T) {
	e := &Escalator{memory: NewDomainMemory(time.Hour)}
	defer e.memory.Stop()

	got := e.startingRung(Request{NormalizedURL: "https://never-seen.example/"})
	if got != rungDomainAPI {
		t.Errorf("expected rungDomainAPI for an unmemoized host, got %v", got)
	}
}

func TestSidecarBodyDecodesBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("hello"))
	body, err := sidecarBody(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "hello" {
		t.Errorf("decoded body = %q, want hello", body)
	}
}

func TestSidecarBodyErrorsOnInvalidBase64(t *testing.T) {
	if _, err := sidecarBody("not-valid-base64!!"); err == nil {
		t.Error("expected an error for invalid base64")
	}
}
