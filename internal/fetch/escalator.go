// Sequential strategy escalation, the core redesign point versus the
// teacher's engine/dispatcher.go: that dispatcher races every engine
// concurrently and takes the first success. spec.md §4.1 instead
// requires a strictly ordered ladder that advances one rung at a time,
// and only on specific signals — a Blocked verdict, an
// empty-or-too-small body, or a detected challenge page. A
// NetworkError or TimeoutError does not advance the ladder (except one
// transient retry at the same rung), though a domain-API miss always
// falls through to the next rung; a WebPeelError is fatal and
// aborts immediately. Kept from the teacher: the Engine-interface
// shape (a fetcher is just "take a Request, return a Result or an
// error") and the per-domain memory idea from engine/dispatcher.go
// (skip straight to the rung that worked last time for this host).
package fetch

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	webpeelerrors "github.com/use-agent/webpeel/errors"
	"github.com/use-agent/webpeel/internal/fetch/domain"
	"github.com/use-agent/webpeel/internal/fetch/sidecar"
)

// rung identifies one step on the escalation ladder. Rungs are tried
// in ascending order starting from whichever rung DomainMemory
// remembers for the host (or rungDomainAPI if nothing is remembered).
type rung int

const (
	rungDomainAPI rung = iota
	rungSimple
	rungBrowser
	rungStealth
	rungTLS
	rungCount
)

// Escalator drives a Request through the ladder, stopping at the
// first rung that produces a usable Result.
type Escalator struct {
	domainRegistry *domain.Registry
	domainClient   *http.Client
	http           *HTTPFetcher
	browser        *BrowserFetcher
	tlsSidecar     *sidecar.Bridge
	memory         *DomainMemory
}

func NewEscalator(reg *domain.Registry, domainClient *http.Client, httpFetcher *HTTPFetcher, browser *BrowserFetcher, tlsSidecar *sidecar.Bridge, memory *DomainMemory) *Escalator {
	return &Escalator{
		domainRegistry: reg, domainClient: domainClient, http: httpFetcher,
		browser: browser, tlsSidecar: tlsSidecar, memory: memory,
	}
}

// Run executes req against the ladder, honoring req.Cloaked (jump
// straight to the TLS rung), req.Stealth (start at the stealth rung)
// and req.Render (start at the browser rung); the last two skip the
// domain-API and simple rungs entirely, since the caller explicitly
// asked for a rendered page.
func (e *Escalator) Run(ctx context.Context, req Request) (Result, error) {
	start := e.startingRung(req)
	host := hostOf(req.NormalizedURL)

	var lastErr error
	for r := start; r < rungCount; r++ {
		if !e.rungApplies(r, req) {
			continue
		}
		res, err := e.tryRung(ctx, r, req)
		if err == nil {
			if host != "" {
				e.memory.Set(host, int(r))
			}
			return res, nil
		}
		lastErr = err
		if webpeelerrors.Is(err, webpeelerrors.KindWebPeel) {
			return Result{}, err
		}
		if !shouldEscalate(err) {
			if r == rungDomainAPI {
				// A domain-API miss means "no shortcut", not a failed
				// fetch: fall through to the next rung.
				continue
			}
			// Give the same rung exactly one transient retry before
			// giving up on the whole ladder: a NetworkError/TimeoutError
			// doesn't mean a stronger rung is needed, it means the
			// attempt itself was unlucky.
			res, err2 := e.tryRung(ctx, r, req)
			if err2 == nil {
				if host != "" {
					e.memory.Set(host, int(r))
				}
				return res, nil
			}
			return Result{}, err2
		}
	}
	return Result{}, lastErr
}

// startingRung consults per-domain memory so a host that is known to
// need the browser doesn't pay for a doomed simple-HTTP attempt first.
func (e *Escalator) startingRung(req Request) rung {
	if req.Cloaked {
		return rungTLS
	}
	if req.Stealth {
		return rungStealth
	}
	if req.Render {
		return rungBrowser
	}
	host := hostOf(req.NormalizedURL)
	if host == "" {
		return rungDomainAPI
	}
	if remembered, ok := e.memory.Get(host); ok && rung(remembered) > rungDomainAPI {
		return rung(remembered)
	}
	return rungDomainAPI
}

func (e *Escalator) rungApplies(r rung, req Request) bool {
	switch r {
	case rungDomainAPI:
		return !req.Render && !req.Cloaked && e.domainRegistry.Lookup(req.URL) != nil
	case rungStealth:
		return true
	default:
		return true
	}
}

func (e *Escalator) tryRung(ctx context.Context, r rung, req Request) (Result, error) {
	switch r {
	case rungDomainAPI:
		return e.fetchDomainAPI(ctx, req)
	case rungSimple:
		return e.http.Fetch(ctx, req)
	case rungBrowser:
		return e.browser.Fetch(ctx, req, false)
	case rungStealth:
		return e.browser.Fetch(ctx, req, true)
	case rungTLS:
		return e.fetchTLS(ctx, req)
	default:
		return Result{}, webpeelerrors.Internal(req.RequestID, "unknown rung", nil)
	}
}

func (e *Escalator) fetchDomainAPI(ctx context.Context, req Request) (Result, error) {
	ex := e.domainRegistry.Lookup(req.URL)
	if ex == nil {
		return Result{}, webpeelerrors.Network(req.RequestID, "no domain extractor matched", nil)
	}
	dr := domain.Extract(ctx, e.domainClient, ex, req.URL)
	if dr == nil {
		return Result{}, webpeelerrors.Network(req.RequestID, "domain extractor produced no usable content", nil)
	}
	structured := dr.Structured
	if structured == nil {
		structured = map[string]any{}
	}
	structured["title"] = dr.Title
	structured["author"] = dr.Author
	structured["publishedAt"] = dr.PublishedAt
	return Result{
		Bytes: []byte(dr.Content), Text: dr.Content, FinalURL: dr.URL,
		StatusCode: 200, ContentType: "text/plain", Method: MethodDomainAPI,
		DomainHandled: true, Structured: structured,
	}, nil
}

func (e *Escalator) fetchTLS(ctx context.Context, req Request) (Result, error) {
	resp, err := e.tlsSidecar.Fetch(ctx, sidecar.FetchRequest{
		URL: req.URL, TimeoutMS: int(req.RemainingDeadline() / time.Millisecond),
		Headers: req.Headers,
	}, req.RequestID)
	if err != nil {
		return Result{}, err
	}
	body, decodeErr := sidecarBody(resp.BodyBase64)
	if decodeErr != nil {
		return Result{}, webpeelerrors.Internal(req.RequestID, "decoding sidecar body", decodeErr)
	}
	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		return Result{}, webpeelerrors.Blocked(req.RequestID, "TLS-spoofed fetch still blocked")
	}
	return Result{
		Bytes: body, Text: string(body), FinalURL: resp.FinalURL, StatusCode: resp.StatusCode,
		ContentType: resp.Headers["Content-Type"], Headers: resp.Headers, Method: MethodTLS,
	}, nil
}

// shouldEscalate reports whether err is one of the signals spec.md
// §4.1 says should advance the ladder: a BlockedError, matched by kind
// or by CodeBlocked. The fetchers report too-small bodies and challenge
// pages as BlockedError. NetworkError/TimeoutError do not escalate.
func shouldEscalate(err error) bool {
	if webpeelerrors.Is(err, webpeelerrors.KindBlocked) {
		return true
	}
	var e *webpeelerrors.Error
	if ae, ok := err.(*webpeelerrors.Error); ok {
		e = ae
	}
	if e != nil && e.Code == webpeelerrors.CodeBlocked {
		return true
	}
	return false
}

func sidecarBody(b64 string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(b64)
}

func hostOf(normalizedURL string) string {
	u, err := url.Parse(normalizedURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
