// Simple HTTP fetcher (escalation rung 3), grounded on the teacher's
// engine/http_engine.go (utls-derived dial, content-type gate, title
// extraction) and scraper/httpfetch.go (realistic headers, SPA-empty
// heuristics later folded into challenge.go). Adds the SSRF
// re-validation per hop, conditional caching, and compressed-body
// handling spec.md §4.2 requires that the teacher's engine did not
// implement.
package fetch

import (
	"bytes"
	"compress/gzip"
	"container/list"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gabriel-vasile/mimetype"
	kcompress "github.com/klauspost/compress/flate"

	"github.com/use-agent/webpeel/internal/cache"
	"github.com/use-agent/webpeel/internal/reqnorm"
	"github.com/use-agent/webpeel/internal/ssrf"

	webpeelerrors "github.com/use-agent/webpeel/errors"
)

const (
	maxURLLength  = 2048
	maxBodyBytes  = 10 * 1024 * 1024 // 10 MiB
	maxRedirects  = 10
)

var allowedTextContentTypes = []string{
	"text/html", "application/xhtml+xml", "text/plain", "text/markdown",
	"text/csv", "application/json", "application/xml", "text/xml",
	"application/rss+xml", "application/atom+xml", "application/javascript",
	"text/javascript", "text/css",
}

var allowedBinaryContentTypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// HTTPFetcher implements rung 3. It owns a shared client, the
// conditional-validator cache, and a small bounded "last body" cache
// needed to answer 304s with the prior body (spec.md invariant 5).
type HTTPFetcher struct {
	client     *http.Client
	validators *cache.Validators
	lastBody   *lastBodyCache
	limiter    *domainLimiter
}

// NewHTTPFetcher builds the rung-3 fetcher. The transport has no
// automatic redirect handling — redirects are walked manually so each
// hop can be re-validated against SSRF rules. dnsCache resolves each
// dial IPv4-preferred (falling back to the system resolver on a miss);
// domainRPS/domainBurst size the per-host token bucket paced ahead of
// the shared connection pool.
func NewHTTPFetcher(validators *cache.Validators, dnsCache *DNSCache, domainRPS float64, domainBurst int) *HTTPFetcher {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 60 * time.Second}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     60 * time.Second,
		ForceAttemptHTTP2:   true,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if dnsCache == nil {
				return dialer.DialContext(ctx, network, addr)
			}
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return dialer.DialContext(ctx, network, addr)
			}
			ip, err := dnsCache.Resolve(ctx, host)
			if err != nil {
				return dialer.DialContext(ctx, network, addr)
			}
			return dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
		},
	}
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse // we walk redirects ourselves
		},
	}
	return &HTTPFetcher{
		client:     client,
		validators: validators,
		lastBody:   newLastBodyCache(500),
		limiter:    newDomainLimiter(domainRPS, domainBurst),
	}
}

// Fetch runs the manual, SSRF-revalidated redirect walk and returns the
// final Result, or a typed *errors.Error.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (Result, error) {
	if err := validateURLShape(req.URL, req.RequestID); err != nil {
		return Result{}, err
	}
	if _, forbidden := req.Headers["Host"]; forbidden {
		return Result{}, webpeelerrors.WebPeel(req.RequestID, "overriding the Host header is not allowed")
	}

	current := req.URL
	seen := make(map[string]bool)
	for hop := 0; ; hop++ {
		if hop > maxRedirects {
			return Result{}, webpeelerrors.New(webpeelerrors.KindWebPeel, webpeelerrors.CodeInvalidInput, req.RequestID, "too many redirects", nil)
		}
		normalized, parsedHost, err := validateAndNormalize(current, req.RequestID)
		if err != nil {
			return Result{}, err
		}
		if seen[normalized] {
			return Result{}, webpeelerrors.WebPeel(req.RequestID, "redirect loop detected")
		}
		seen[normalized] = true

		if err := ssrf.ValidateURLHost(parsedHost, req.RequestID); err != nil {
			return Result{}, err
		}

		if err := f.limiter.wait(ctx, parsedHost); err != nil {
			return Result{}, webpeelerrors.Timeout(req.RequestID, "per-domain rate limit wait exceeded the context deadline")
		}

		resp, body, err := f.doOnce(ctx, current, normalized, req)
		if err != nil {
			return Result{}, err
		}
		if loc := resp.Header.Get("Location"); isRedirect(resp.StatusCode) && loc != "" {
			next, err := resolveRedirect(current, loc)
			if err != nil {
				return Result{}, webpeelerrors.InvalidURL(req.RequestID, "invalid redirect location")
			}
			current = next
			continue
		}
		return f.buildResult(resp, body, current, req)
	}
}

func (f *HTTPFetcher) doOnce(ctx context.Context, rawURL, normalizedURL string, req Request) (*http.Response, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, webpeelerrors.InvalidURL(req.RequestID, "could not build request")
	}
	applyRealisticHeaders(httpReq)
	for k, v := range req.Headers {
		if strings.EqualFold(k, "host") {
			continue
		}
		httpReq.Header.Set(k, v)
	}
	for name, value := range req.Cookies {
		httpReq.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if rec, ok := f.validators.Get(normalizedURL); ok {
		if rec.ETag != "" {
			httpReq.Header.Set("If-None-Match", rec.ETag)
		}
		if rec.LastModified != "" {
			httpReq.Header.Set("If-Modified-Since", rec.LastModified)
		}
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, webpeelerrors.Timeout(req.RequestID, "request deadline exceeded")
		}
		return nil, nil, webpeelerrors.Network(req.RequestID, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		if cached, ok := f.lastBody.get(normalizedURL); ok {
			resp.StatusCode = http.StatusNotModified
			return resp, cached, nil
		}
		return nil, nil, webpeelerrors.Network(req.RequestID, "304 received with no cached body available", nil)
	}

	if isRedirect(resp.StatusCode) {
		return resp, nil, nil
	}

	body, err := readLimited(resp, req.RequestID)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode == http.StatusOK {
		f.validators.Record(normalizedURL, cache.ValidatorRecord{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		})
		f.lastBody.set(normalizedURL, body)
	}
	return resp, body, nil
}

func (f *HTTPFetcher) buildResult(resp *http.Response, body []byte, finalURL string, req Request) (Result, error) {
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		return Result{}, webpeelerrors.Blocked(req.RequestID, fmt.Sprintf("server returned %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	isBinaryDoc := matchesAny(contentType, allowedBinaryContentTypes) || sniffIsBinaryDoc(body)
	isText := matchesAny(contentType, allowedTextContentTypes) || (contentType == "" && looksLikeText(body))

	if !isBinaryDoc && !isText {
		return Result{}, webpeelerrors.New(webpeelerrors.KindWebPeel, webpeelerrors.CodeInvalidInput, req.RequestID,
			"unsupported content type "+contentType, nil)
	}

	if isText {
		text := string(body)
		if IsTooSmall(body, 100) {
			return Result{}, webpeelerrors.Blocked(req.RequestID, "response body too small")
		}
		if cr := DetectChallenge(text, resp.StatusCode); cr.IsChallenge {
			return Result{}, webpeelerrors.Blocked(req.RequestID, "challenge page detected: "+string(cr.Type))
		}
		headers := map[string]string{
			"etag":          resp.Header.Get("ETag"),
			"last-modified": resp.Header.Get("Last-Modified"),
			"cache-control": resp.Header.Get("Cache-Control"),
		}
		return Result{
			Bytes: body, Text: text, FinalURL: finalURL, StatusCode: resp.StatusCode,
			ContentType: contentType, Headers: headers, Method: MethodSimple,
		}, nil
	}

	return Result{
		Bytes: body, FinalURL: finalURL, StatusCode: resp.StatusCode,
		ContentType: contentType, Method: MethodSimple, IsBinary: true,
	}, nil
}

func readLimited(resp *http.Response, requestID string) ([]byte, error) {
	reader, err := decodingReader(resp)
	if err != nil {
		return nil, webpeelerrors.Network(requestID, "could not decode response body", err)
	}
	limited := io.LimitReader(reader, maxBodyBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, webpeelerrors.Network(requestID, "reading response body failed", err)
	}
	if len(data) > maxBodyBytes {
		return nil, webpeelerrors.New(webpeelerrors.KindWebPeel, webpeelerrors.CodeInvalidInput, requestID, "response too large", nil)
	}
	return data, nil
}

func decodingReader(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		return kcompress.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

func sniffIsBinaryDoc(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	mt := mimetype.Detect(body)
	for mt != nil {
		if matchesAny(mt.String(), allowedBinaryContentTypes) {
			return true
		}
		mt = mt.Parent()
	}
	return false
}

func looksLikeText(body []byte) bool {
	return bytes.IndexByte(body, 0) == -1
}

func matchesAny(contentType string, candidates []string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, c := range candidates {
		if ct == c {
			return true
		}
	}
	return false
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func resolveRedirect(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func applyRealisticHeaders(req *http.Request) {
	ua, secCHUA, platform := RandomUserAgent()
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Sec-CH-UA", secCHUA)
	req.Header.Set("Sec-CH-UA-Platform", platform)
	req.Header.Set("Sec-CH-UA-Mobile", "?0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// validateURLShape enforces spec.md §4.2's length/control-char/scheme
// rules, independent of hostname SSRF validation.
func validateURLShape(rawURL, requestID string) error {
	if len(rawURL) > maxURLLength {
		return webpeelerrors.InvalidURL(requestID, "url exceeds maximum length")
	}
	for _, r := range rawURL {
		if r < 0x20 || r == 0x7f {
			return webpeelerrors.InvalidURL(requestID, "url contains control characters")
		}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return webpeelerrors.InvalidURL(requestID, "url could not be parsed")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return webpeelerrors.InvalidURL(requestID, "only http and https schemes are allowed")
	}
	if u.Hostname() == "" {
		return webpeelerrors.InvalidURL(requestID, "url has no hostname")
	}
	return nil
}

func validateAndNormalize(rawURL, requestID string) (normalized, host string, err error) {
	if err := validateURLShape(rawURL, requestID); err != nil {
		return "", "", err
	}
	u, _ := url.Parse(rawURL)
	n, nerr := reqnorm.Normalize(rawURL)
	if nerr != nil {
		return "", "", webpeelerrors.InvalidURL(requestID, "url could not be normalized")
	}
	return n, u.Hostname(), nil
}

// lastBodyCache is a tiny bounded LRU mapping normalized URL -> last
// successfully fetched raw body, used only to answer 304s per spec.md
// invariant 5 ("on 304 it substitutes the L1 body").
type lastBodyCache struct {
	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
	cap   int
}

type lastBodyNode struct {
	key  string
	body []byte
}

func newLastBodyCache(capacity int) *lastBodyCache {
	return &lastBodyCache{order: list.New(), items: make(map[string]*list.Element), cap: capacity}
}

func (c *lastBodyCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lastBodyNode).body, true
}

func (c *lastBodyCache) set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*lastBodyNode).body = body
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.cap {
		back := c.order.Back()
		if back != nil {
			c.order.Remove(back)
			delete(c.items, back.Value.(*lastBodyNode).key)
		}
	}
	el := c.order.PushFront(&lastBodyNode{key: key, body: body})
	c.items[key] = el
}
