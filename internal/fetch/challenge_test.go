package fetch

import "testing"

func TestDetectChallengeCloudflare(t *testing.T) {
	body := `<html><body>Checking your browser... cf-browser-verification</body></html>`
	res := DetectChallenge(body, 200)
	if !res.IsChallenge || res.Type != ChallengeCloudflare {
		t.Errorf("expected cloudflare challenge, got %+v", res)
	}
}

func TestDetectChallengeCaptcha(t *testing.T) {
	body := `<div class="g-recaptcha" data-sitekey="..."></div>`
	res := DetectChallenge(body, 200)
	if !res.IsChallenge || res.Type != ChallengeCaptcha {
		t.Errorf("expected captcha challenge, got %+v", res)
	}
}

func TestDetectChallengeBlockedStatusWithoutRecognizableBody(t *testing.T) {
	res := DetectChallenge("Forbidden", 403)
	if !res.IsChallenge || res.Type != ChallengeUnknown {
		t.Errorf("expected an unknown-type challenge on a bare 403, got %+v", res)
	}
}

func TestDetectChallengeEmptyShellSPARoot(t *testing.T) {
	body := `<html><body><div id="root"></div><script src="bundle.js"></script></body></html>`
	res := DetectChallenge(body, 200)
	if !res.IsChallenge || res.Type != ChallengeEmptyShell {
		t.Errorf("expected empty-shell challenge, got %+v", res)
	}
}

func TestDetectChallengeNoneOnNormalPage(t *testing.T) {
	body := `<html><body><article><h1>Real Article</h1><p>` +
		`This page has plenty of real visible text content spanning well over two hundred characters ` +
		`so that it is not mistaken for a pre-hydration application shell by the detector under test.` +
		`</p></article></body></html>`
	res := DetectChallenge(body, 200)
	if res.IsChallenge {
		t.Errorf("expected no challenge on a normal content page, got %+v", res)
	}
}

func TestIsTooSmall(t *testing.T) {
	if !IsTooSmall([]byte("  hi  "), 100) {
		t.Error("expected a short body to be flagged too small")
	}
	body := make([]byte, 200)
	for i := range body {
		body[i] = 'a'
	}
	if IsTooSmall(body, 100) {
		t.Error("expected a long body not to be flagged too small")
	}
}
