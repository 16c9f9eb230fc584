// Package webpeel is the public entry point: Fetch and FetchMany wire
// together cache probing, the strategy escalator, and content
// distillation into the single call surface spec.md §6 describes.
//
// Composition-root grounded on the teacher's scraper/scraper.go
// NewScraper: same stealth launcher flags, same "launch browser, build
// the page pool, return a struct with Close()" shape, generalized from
// a bare rod.Pool into the full ladder of fetchers this module adds.
package webpeel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/google/uuid"

	"github.com/use-agent/webpeel/config"
	webpeelerrors "github.com/use-agent/webpeel/errors"
	"github.com/use-agent/webpeel/internal/cache"
	"github.com/use-agent/webpeel/internal/checkpoint"
	"github.com/use-agent/webpeel/internal/distill"
	"github.com/use-agent/webpeel/internal/fetch"
	"github.com/use-agent/webpeel/internal/fetch/domain"
	"github.com/use-agent/webpeel/internal/fetch/sidecar"
	"github.com/use-agent/webpeel/internal/llm"
	"github.com/use-agent/webpeel/internal/reqnorm"
)

// knownDomainAPIHosts are the fixed hosts the domain-API extractors
// always call out to, regardless of the URL being peeled; warming
// their DNS entries at startup avoids paying that lookup on the first
// hackernews/github/oembed request. (The Discourse extractor calls each
// forum's own host, so it has no fixed host to warm.)
var knownDomainAPIHosts = []string{
	"hacker-news.firebaseio.com",
	"api.github.com",
	"raw.githubusercontent.com",
	"noembed.com",
}

// Options is the full per-call option surface from spec.md §6.
type Options struct {
	Timeout        time.Duration
	Headers        map[string]string
	Cookies        map[string]string
	Render         bool
	Stealth        bool
	Cloaked        bool
	Actions        []fetch.RawAction
	Screenshot     bool
	FullPage       bool
	ViewportWidth  int
	ViewportHeight int
	BlockResources bool
	WaitUntil      string
	WaitSelector   string
	WaitMS         int
	Proxy          string
	Locale         string
	Languages      []string
	NoCache        bool

	// Distillation options, passed through to internal/distill.
	Format       distill.Format
	Mode         distill.Mode
	Selector     string
	Exclude      string
	IncludeTags  []string
	ExcludeTags  []string
	MaxTokens    int
	Question     string
	SchemaName   string
	SchemaFields map[string]string
	Chunk        bool
	ChunkTokens  int

	// LLM carries BYOK credentials for an OpenAI-compatible provider
	// (see internal/llm). Fetch does not read this field: schema
	// extraction always uses the BM25 heuristic.
	LLM *llm.ExtractParams
}

// PeelResult is the public shape returned from Fetch.
type PeelResult struct {
	URL         string
	FinalURL    string
	StatusCode  int
	Method      fetch.Method
	FromCache   bool
	Content     string
	Format      distill.Format
	Metadata    distill.OGMetadata
	Links       []distill.Link
	Images      []string
	Tokens      distill.TokenInfo
	WordCount   int
	ReadingSecs int
	Fingerprint string
	SchemaData  map[string]string
	Chunks      []distill.Chunk
	Screenshot  []byte
	RequestID   string
}

// Client owns every long-lived resource: the browser process, page
// pool, TLS sidecar bridge, and caches. Build one per process and
// reuse it; Close releases the browser and sidecar subprocess.
type Client struct {
	cfg        *config.Config
	cache      *cache.ResponseCache
	validators *cache.Validators
	escalator  *fetch.Escalator
	browser    *rod.Browser
	pagePool   *fetch.PagePool
	sidecar    *sidecar.Bridge
	llmClient  *llm.Client
	checkpoint *checkpoint.Store

	closeOnce sync.Once
}

// New builds a Client from cfg, launching the headless browser and
// preparing (but not yet spawning) the TLS sidecar.
func New(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		cfg = config.Load()
	}

	browser, err := launchBrowser(cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("webpeel: launching browser: %w", err)
	}

	validators := cache.NewValidators(cfg.Cache.ValidatorCap)
	respCache := cache.New(cfg.Cache.L1MaxEntries, cfg.Cache.L1TTL, cfg.Cache.L2TTL, cfg.Cache.L2Cooldown, nil)

	dnsCache := fetch.NewDNSCache(cfg.Pool.DNSCacheTTL)
	dnsCache.Warmup(context.Background(), knownDomainAPIHosts)

	httpFetcher := fetch.NewHTTPFetcher(validators, dnsCache, cfg.Pool.DomainRPS, cfg.Pool.DomainBurst)
	pagePool := fetch.NewPagePool(browser, fetch.PagePoolConfig{
		MinPages:     cfg.Pool.PagePoolSize,
		HardMax:      cfg.Pool.MaxConcurrentTab * 4,
		QueueWait:    cfg.Pool.PageQueueWait,
		MemThreshold: 0.9,
		ScaleStep:    0.05,
	})
	browserFetcher := fetch.NewBrowserFetcher(pagePool, httpFetcher)

	tlsSidecar := sidecar.New(cfg.Sidecar.BinaryPath, cfg.Sidecar.SpawnTimeout)
	memory := fetch.NewDomainMemory(cfg.Escalate.DomainMemoryTTL)
	registry := domain.NewRegistry()
	domainClient := &http.Client{Timeout: 20 * time.Second}

	escalator := fetch.NewEscalator(registry, domainClient, httpFetcher, browserFetcher, tlsSidecar, memory)

	cpStore, err := checkpoint.NewStore("")
	if err != nil {
		slog.Warn("webpeel: checkpoint store unavailable", "error", err)
	}

	return &Client{
		cfg: cfg, cache: respCache, validators: validators, escalator: escalator,
		browser: browser, pagePool: pagePool, sidecar: tlsSidecar,
		llmClient: llm.NewClient(nil), checkpoint: cpStore,
	}, nil
}

func launchBrowser(cfg config.BrowserConfig) (*rod.Browser, error) {
	l := launcher.New().Headless(cfg.Headless).NoSandbox(cfg.NoSandbox)
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	return browser, nil
}

// Fetch resolves one URL through the cache, then the strategy
// escalator, then content distillation.
func (c *Client) Fetch(ctx context.Context, rawURL string, opts Options) (PeelResult, error) {
	requestID := uuid.NewString()

	normalized, err := reqnorm.Normalize(rawURL)
	if err != nil {
		return PeelResult{}, webpeelerrors.InvalidURL(requestID, "url could not be normalized")
	}

	fingerprint := reqnorm.Fingerprint(normalized, optionsHash(opts))
	if !opts.NoCache {
		if entry, ok := c.cache.Get(fingerprint); ok {
			var cached PeelResult
			if err := decodeCachedResult(entry.Bytes, &cached); err == nil {
				cached.FromCache = true
				return cached, nil
			}
		}
	}

	deadline := time.Now().Add(defaultDuration(opts.Timeout, c.cfg.Escalate.DefaultTimeout))
	req := buildFetchRequest(rawURL, normalized, requestID, deadline, opts)

	res, err := c.escalator.Run(ctx, req)
	if err != nil {
		return PeelResult{}, err
	}

	result, err := c.distillResult(ctx, res, rawURL, requestID, opts)
	if err != nil {
		return PeelResult{}, err
	}

	if !opts.NoCache {
		if encoded, err := encodeCachedResult(result); err == nil {
			c.cache.Set(fingerprint, encoded)
		}
	}
	return result, nil
}

// FetchManyResult pairs a URL with its outcome for FetchMany's
// best-effort fan-out.
type FetchManyResult struct {
	URL    string
	Result PeelResult
	Err    error
}

// FetchMany runs Fetch over every url with bounded concurrency,
// optionally persisting resume state via jobID (empty disables
// checkpointing). This is a plain fan-out, not a full crawl job: no
// polling, no webhooks, just the checkpoint file shape spec.md §6
// names.
func (c *Client) FetchMany(ctx context.Context, jobID string, urls []string, concurrency int, opts Options) []FetchManyResult {
	if concurrency <= 0 {
		concurrency = 5
	}

	var cp *checkpoint.Checkpoint
	if jobID != "" && c.checkpoint != nil {
		existing, err := c.checkpoint.Load(jobID)
		if err == nil {
			cp = existing
			urls = cp.Remaining()
		} else if created, err := c.checkpoint.New(jobID, urls); err == nil {
			cp = created
		}
	}

	results := make([]FetchManyResult, len(urls))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := c.Fetch(ctx, u, opts)
			results[i] = FetchManyResult{URL: u, Result: res, Err: err}

			if cp != nil {
				if err != nil {
					_ = c.checkpoint.MarkFailed(cp, u)
				} else {
					_ = c.checkpoint.MarkCompleted(cp, u)
				}
			}
		}(i, u)
	}
	wg.Wait()
	return results
}

// Close shuts down the browser and any running TLS sidecar process.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		slog.Info("webpeel: shutting down")
		c.pagePool.Stop()
		c.browser.MustClose()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = c.sidecar.Shutdown(shutdownCtx)
	})
}

func defaultDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
