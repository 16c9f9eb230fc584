// Adaptive browser page pool, grounded on the teacher's
// engine/adaptive_pool.go almost wholesale: memory-pressure based
// grow/shrink, per-page health scoring and retirement. Generalized
// from a bare rod.Pool[*rod.Page] into the richer page-pool-entry
// model spec.md §3 names (in-use flag, last-reset marker).
package fetch

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// PageHandle tracks one pooled page's health.
type PageHandle struct {
	ID        int64
	Page      *rod.Page
	mu        sync.Mutex
	errScore  float64
	useCount  int
	created   time.Time
	lastReset time.Time
	inUse     bool
}

func (h *PageHandle) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	if h.errScore > 0 {
		h.errScore -= 0.5
		if h.errScore < 0 {
			h.errScore = 0
		}
	}
}

func (h *PageHandle) RecordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	h.errScore += 1.0
}

// ShouldRetire matches the teacher's thresholds: too many accumulated
// errors, too many total uses, or too old.
func (h *PageHandle) ShouldRetire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errScore >= 3.0 || h.useCount >= 50 || time.Since(h.created) >= 50*time.Minute
}

// PagePoolConfig mirrors config.PoolConfig's page-pool fields.
type PagePoolConfig struct {
	MinPages     int
	HardMax      int
	MemThreshold float64
	ScaleStep    float64
	QueueWait    time.Duration
}

// PagePool owns a bounded set of live pages checked out to callers one
// at a time, scaling between MinPages and HardMax based on heap
// pressure and utilization, following the teacher's scalingLoop.
type PagePool struct {
	cfg      PagePoolConfig
	browser  *rod.Browser
	mu       sync.Mutex
	idle     []*PageHandle
	all      map[int64]*PageHandle
	nextID   int64
	active   int
	stopped  bool
	stopCh   chan struct{}
	waitCond *sync.Cond
}

func NewPagePool(browser *rod.Browser, cfg PagePoolConfig) *PagePool {
	if cfg.MinPages <= 0 {
		cfg.MinPages = 3
	}
	if cfg.HardMax <= 0 {
		cfg.HardMax = 20
	}
	if cfg.MemThreshold <= 0 {
		cfg.MemThreshold = 0.9
	}
	if cfg.ScaleStep <= 0 {
		cfg.ScaleStep = 0.05
	}
	if cfg.QueueWait <= 0 {
		cfg.QueueWait = 30 * time.Second
	}
	p := &PagePool{cfg: cfg, browser: browser, all: make(map[int64]*PageHandle), stopCh: make(chan struct{})}
	p.waitCond = sync.NewCond(&p.mu)
	for i := 0; i < cfg.MinPages; i++ {
		if h, err := p.spawn(); err == nil {
			p.idle = append(p.idle, h)
		}
	}
	go p.scalingLoop()
	return p
}

func (p *PagePool) spawn() (*PageHandle, error) {
	page, err := p.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.nextID++
	h := &PageHandle{ID: p.nextID, Page: page, created: time.Now(), lastReset: time.Now()}
	p.all[h.ID] = h
	p.mu.Unlock()
	return h, nil
}

// Get checks out an idle page, spawning one if below HardMax, or
// blocking up to cfg.QueueWait before the caller should surface a
// TimeoutError.
func (p *PagePool) Get(ctx context.Context) (*PageHandle, error) {
	deadline := time.Now().Add(p.cfg.QueueWait)
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if len(p.idle) > 0 {
			h := p.idle[len(p.idle)-1]
			p.idle = p.idle[:len(p.idle)-1]
			h.inUse = true
			p.active++
			return h, nil
		}
		if len(p.all) < p.cfg.HardMax {
			p.mu.Unlock()
			h, err := p.spawn()
			p.mu.Lock()
			if err == nil {
				h.inUse = true
				p.active++
				return h, nil
			}
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return nil, errQueueTimeout
		}
		p.mu.Unlock()
		time.Sleep(50 * time.Millisecond)
		p.mu.Lock()
	}
}

// Put returns a page after use, sanitizing it first. A page that fails
// sanitization or has earned retirement is discarded and the pool
// refills asynchronously, matching spec.md §4.3.
func (p *PagePool) Put(h *PageHandle, success bool) {
	if success {
		h.RecordSuccess()
	} else {
		h.RecordFailure()
	}
	p.mu.Lock()
	p.active--
	p.mu.Unlock()

	if h.ShouldRetire() || !sanitizePage(h) {
		p.discard(h)
		go func() {
			if nh, err := p.spawn(); err == nil {
				p.mu.Lock()
				p.idle = append(p.idle, nh)
				p.mu.Unlock()
			}
		}()
		return
	}
	h.mu.Lock()
	h.inUse = false
	h.lastReset = time.Now()
	h.mu.Unlock()
	p.mu.Lock()
	p.idle = append(p.idle, h)
	p.mu.Unlock()
}

// Discard removes a cancelled-during-use page without returning it to
// the pool, per spec.md §5's cancellation rule.
func (p *PagePool) Discard(h *PageHandle) { p.discard(h) }

func (p *PagePool) discard(h *PageHandle) {
	p.mu.Lock()
	delete(p.all, h.ID)
	p.mu.Unlock()
	_ = h.Page.Close()
}

// sanitizePage clears cookies and extra headers, then navigates to a
// blank page, restoring the page-pool-entry invariant from spec.md §3.
// Route handlers are not touched here: the browser fetcher stops its
// hijack router before it returns the page. Returns false if any step
// errors.
func sanitizePage(h *PageHandle) bool {
	page := h.Page
	if err := proto.NetworkClearBrowserCookies{}.Call(page); err != nil {
		return false
	}
	if err := (proto.NetworkSetExtraHTTPHeaders{Headers: proto.NetworkHeaders{}}).Call(page); err != nil {
		return false
	}
	if err := page.Navigate("about:blank"); err != nil {
		return false
	}
	return true
}

func (p *PagePool) scalingLoop() {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.rescale()
		case <-p.stopCh:
			return
		}
	}
}

func (p *PagePool) rescale() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	heapFrac := 0.0
	if m.HeapSys > 0 {
		heapFrac = float64(m.HeapInuse) / float64(m.HeapSys)
	}

	p.mu.Lock()
	total := len(p.all)
	utilization := 0.0
	if total > 0 {
		utilization = float64(p.active) / float64(total)
	}
	p.mu.Unlock()

	step := int(float64(p.cfg.HardMax)*p.cfg.ScaleStep + 0.5)
	if step < 1 {
		step = 1
	}

	if heapFrac > p.cfg.MemThreshold {
		p.shrink(step)
		return
	}
	if utilization > 0.8 && total < p.cfg.HardMax {
		p.grow(step)
	}
}

func (p *PagePool) grow(n int) {
	for i := 0; i < n; i++ {
		p.mu.Lock()
		full := len(p.all) >= p.cfg.HardMax
		p.mu.Unlock()
		if full {
			return
		}
		h, err := p.spawn()
		if err != nil {
			slog.Warn("fetch: page pool growth failed", "error", err)
			return
		}
		p.mu.Lock()
		p.idle = append(p.idle, h)
		p.mu.Unlock()
	}
}

func (p *PagePool) shrink(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n && len(p.idle) > 0 && len(p.all) > p.cfg.MinPages; i++ {
		h := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		delete(p.all, h.ID)
		go h.Page.Close()
	}
}

// Stop drains the pool, closing every page.
func (p *PagePool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopCh)
	all := make([]*PageHandle, 0, len(p.all))
	for _, h := range p.all {
		all = append(all, h)
	}
	p.mu.Unlock()
	for _, h := range all {
		_ = h.Page.Close()
	}
}

var errQueueTimeout = newQueueTimeoutErr()

func newQueueTimeoutErr() error { return timeoutSentinel{} }

type timeoutSentinel struct{}

func (timeoutSentinel) Error() string { return "page pool queue wait exceeded" }
