package webpeel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/use-agent/webpeel/internal/distill"
	"github.com/use-agent/webpeel/internal/fetch"
)

// optionsHash folds the fetch/render options and the distillation
// options below into the cache fingerprint (internal/reqnorm.Fingerprint
// combines this with the normalized URL). Fetch caches the distilled
// PeelResult itself, so distillation options (Format, MaxTokens,
// Question, ...) are part of the hash. Maps are printed with %v, which
// orders them by key, so the hash does not depend on iteration order.
func optionsHash(opts Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "render=%v stealth=%v cloaked=%v screenshot=%v fullpage=%v vw=%d vh=%d blockres=%v waituntil=%s waitsel=%s waitms=%d proxy=%s locale=%s headers=%v",
		opts.Render, opts.Stealth, opts.Cloaked, opts.Screenshot, opts.FullPage,
		opts.ViewportWidth, opts.ViewportHeight, opts.BlockResources,
		opts.WaitUntil, opts.WaitSelector, opts.WaitMS, opts.Proxy, opts.Locale, opts.Headers)
	fmt.Fprintf(h, " format=%s mode=%s selector=%s exclude=%s includetags=%v excludetags=%v maxtokens=%d question=%s schema=%s fields=%v chunk=%v chunktokens=%d",
		opts.Format, opts.Mode, opts.Selector, opts.Exclude, opts.IncludeTags, opts.ExcludeTags,
		opts.MaxTokens, opts.Question, opts.SchemaName, opts.SchemaFields, opts.Chunk, opts.ChunkTokens)
	return hex.EncodeToString(h.Sum(nil))
}

func buildFetchRequest(rawURL, normalizedURL, requestID string, deadline time.Time, opts Options) fetch.Request {
	actions, _ := fetch.NormalizeActions(opts.Actions, requestID)
	return fetch.Request{
		URL: rawURL, NormalizedURL: normalizedURL, RequestID: requestID,
		Headers: opts.Headers, Cookies: opts.Cookies, Deadline: deadline,
		Render: opts.Render, Stealth: opts.Stealth, Cloaked: opts.Cloaked,
		Actions: actions, Screenshot: opts.Screenshot, FullPage: opts.FullPage,
		ViewportWidth: opts.ViewportWidth, ViewportHeight: opts.ViewportHeight,
		BlockResources: opts.BlockResources, WaitUntil: opts.WaitUntil,
		WaitSelector: opts.WaitSelector, WaitMS: opts.WaitMS, Proxy: opts.Proxy,
		Locale: opts.Locale, Languages: opts.Languages,
	}
}

// distillResult runs content distillation over a raw fetch.Result and
// assembles the public PeelResult. Domain-API and binary results skip
// distillation: there is no HTML DOM to clean.
func (c *Client) distillResult(ctx context.Context, res fetch.Result, rawURL, requestID string, opts Options) (PeelResult, error) {
	base := PeelResult{
		URL: rawURL, FinalURL: res.FinalURL, StatusCode: res.StatusCode,
		Method: res.Method, Screenshot: res.ScreenshotPNG, RequestID: requestID,
	}

	if res.DomainHandled {
		base.Content = res.Text
		base.Format = distill.FormatText
		if title, ok := res.Structured["title"].(string); ok {
			base.Metadata.Title = title
		}
		if author, ok := res.Structured["author"].(string); ok {
			base.Metadata.Author = author
		}
		base.WordCount = distill.WordCount(res.Text)
		base.ReadingSecs = distill.ReadingTimeSeconds(base.WordCount)
		base.Fingerprint = distill.Fingerprint(res.Text)
		return base, nil
	}

	if res.IsBinary {
		base.Content = ""
		base.Format = distill.FormatClean
		return base, nil
	}

	schemaFields := opts.SchemaFields
	if schemaFields == nil && opts.SchemaName != "" {
		schemaFields = distill.SchemaTemplates[opts.SchemaName]
	}

	result, err := distill.Distill(res.Text, rawURL, distill.Options{
		Format: opts.Format, Mode: opts.Mode, Selector: opts.Selector, Exclude: opts.Exclude,
		IncludeTags: opts.IncludeTags, ExcludeTags: opts.ExcludeTags,
		MaxTokens: opts.MaxTokens, Question: opts.Question,
		SchemaName: opts.SchemaName, SchemaFields: schemaFields,
		Chunk: opts.Chunk, ChunkTokens: opts.ChunkTokens,
	})
	if err != nil {
		return PeelResult{}, err
	}

	base.Content = result.Content
	base.Format = result.Format
	base.Metadata = result.Metadata
	base.Links = result.Links
	base.Images = result.Images
	base.Tokens = result.Tokens
	base.WordCount = result.WordCount
	base.ReadingSecs = result.ReadingSecs
	base.Fingerprint = result.Fingerprint
	base.SchemaData = result.SchemaData
	base.Chunks = result.Chunks
	return base, nil
}

func encodeCachedResult(r PeelResult) ([]byte, error) {
	return json.Marshal(r)
}

func decodeCachedResult(data []byte, out *PeelResult) error {
	return json.Unmarshal(data, out)
}
