// Bot-challenge / empty-shell detection, grounded on the teacher's
// scraper/httpfetch.go needsBrowser heuristics and engine/http_engine.go
// content-type gate, generalized into the single detectChallenge
// contract spec.md §4.9 names.
package fetch

import (
	"regexp"
	"strings"
)

// ChallengeType classifies what kind of non-content response was seen.
type ChallengeType string

const (
	ChallengeNone        ChallengeType = ""
	ChallengeEmptyShell  ChallengeType = "empty-shell"
	ChallengeCloudflare  ChallengeType = "cloudflare"
	ChallengePerimeterX  ChallengeType = "perimeterx"
	ChallengeDataDome    ChallengeType = "datadome"
	ChallengeCaptcha     ChallengeType = "captcha"
	ChallengeUnknown     ChallengeType = "unknown"
)

// ChallengeResult is detectChallenge's return shape.
type ChallengeResult struct {
	IsChallenge bool
	Type        ChallengeType
	Confidence  float64
}

const challengeConfidenceThreshold = 0.6

var (
	noscriptJSRe  = regexp.MustCompile(`(?i)(enable|activate|turn on|requires)\s+javascript`)
	cfBrowserRe   = regexp.MustCompile(`(?i)cf-browser-verification|just a moment`)
	perimeterXRe  = regexp.MustCompile(`(?i)_pxhd|perimeterx|px-captcha`)
	dataDomeRe    = regexp.MustCompile(`(?i)datadome`)
	captchaRe     = regexp.MustCompile(`(?i)hcaptcha|recaptcha|g-recaptcha`)
	scriptTagRe   = regexp.MustCompile(`(?i)<script`)
	spaRootRe     = regexp.MustCompile(`(?i)id=["'](root|app|__next)["']`)
)

// DetectChallenge classifies an HTML body and status code. The
// escalator treats ChallengeEmptyShell as "upgrade to browser
// rendering" and every other non-None type as a BlockedError signal,
// provided Confidence clears challengeConfidenceThreshold.
func DetectChallenge(body string, statusCode int) ChallengeResult {
	if statusCode == 403 || statusCode == 503 {
		if t := classifyBody(body); t != ChallengeUnknown && t != ChallengeNone {
			return ChallengeResult{IsChallenge: true, Type: t, Confidence: 0.9}
		}
		return ChallengeResult{IsChallenge: true, Type: ChallengeUnknown, Confidence: 0.7}
	}
	if t := classifyBody(body); t != ChallengeNone {
		return ChallengeResult{IsChallenge: true, Type: t, Confidence: 0.85}
	}
	if isEmptyShell(body) {
		return ChallengeResult{IsChallenge: true, Type: ChallengeEmptyShell, Confidence: 0.75}
	}
	return ChallengeResult{}
}

func classifyBody(body string) ChallengeType {
	switch {
	case cfBrowserRe.MatchString(body):
		return ChallengeCloudflare
	case perimeterXRe.MatchString(body):
		return ChallengePerimeterX
	case dataDomeRe.MatchString(body):
		return ChallengeDataDome
	case captchaRe.MatchString(body):
		return ChallengeCaptcha
	default:
		return ChallengeNone
	}
}

// isEmptyShell detects an SPA pre-hydration page: a nearly-empty
// visible body with a recognizable root mount node, a noscript
// banner demanding JavaScript, or a script-tag-to-content ratio that
// suggests nothing rendered server-side.
func isEmptyShell(body string) bool {
	visible := strings.TrimSpace(stripTags(body))
	if len(visible) < 200 && spaRootRe.MatchString(body) {
		return true
	}
	if noscriptJSRe.MatchString(body) {
		return true
	}
	scriptCount := len(scriptTagRe.FindAllString(body, -1))
	if scriptCount > 10 && len(visible) < 500 {
		return true
	}
	return false
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string { return tagRe.ReplaceAllString(s, " ") }

// IsTooSmall reports whether an HTML body is under spec.md §4.2's
// too-small threshold (default 100 bytes).
func IsTooSmall(body []byte, minBytes int) bool {
	return len(strings.TrimSpace(string(body))) < minBytes
}
