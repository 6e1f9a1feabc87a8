package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"intermark-scraper/config"
	"intermark-scraper/models"
	"intermark-scraper/utils"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher drives a headless browser to load a URL, wait for content
// readiness, trigger lazy-loading via scroll, and return stabilized HTML.
//
// A single browser session is started lazily on first use and reused across
// calls within a run. The session holds exclusive mutable state (current
// page, scroll position), so calls are serialized through a mutex.
type Fetcher struct {
	cfg *config.Config
	log *utils.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	closed        bool
}

// NewFetcher returns a Fetcher. No browser process is started until the
// first Fetch call.
func NewFetcher(cfg *config.Config, log *utils.Logger) *Fetcher {
	return &Fetcher{cfg: cfg, log: log}
}

// Fetch loads the URL and returns the stabilized HTML snapshot. It never
// fails on navigation errors or wait timeouts: whatever HTML is available
// (possibly none) comes back, because an empty page is a legitimate
// pagination-termination signal, not a crawl-fatal error.
func (f *Fetcher) Fetch(ctx context.Context, url string, maxRounds int) *models.RenderedPage {
	f.mu.Lock()
	defer f.mu.Unlock()

	page := &models.RenderedPage{URL: url}

	if err := f.startLocked(); err != nil {
		f.log.Error("[render] browser start failed: %v", err)
		return page
	}

	tabCtx, cancel := chromedp.NewContext(f.browserCtx)
	defer cancel()

	navCtx, cancelNav := context.WithTimeout(tabCtx, time.Duration(f.cfg.NavTimeoutSec)*time.Second)
	defer cancelNav()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		f.log.Error("[render] navigate failed url=%s err=%v", url, err)
		return page
	}

	// Page structure first, then the content cards. Both waits degrade to
	// log-and-continue: absence of cards is meaningful (empty page).
	f.waitFor(tabCtx, url, "body")
	f.waitFor(tabCtx, url, f.cfg.CardSelector)

	f.stabilize(tabCtx, url, maxRounds)

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		f.log.Warn("[render] snapshot failed url=%s err=%v", url, err)
		return page
	}

	page.HTML = html
	return page
}

// waitFor waits (bounded) for at least one element matching sel to appear.
func (f *Fetcher) waitFor(ctx context.Context, url, sel string) {
	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(f.cfg.RenderWaitSec)*time.Second)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitReady(sel, chromedp.ByQuery)); err != nil {
		f.log.Warn("[render] wait %q timed out on %s", sel, url)
	}
}

// stabilize repeatedly scrolls to the bottom and re-counts visible cards
// until the count stops changing or the round budget is exhausted.
func (f *Fetcher) stabilize(ctx context.Context, url string, maxRounds int) {
	pause := time.Duration(f.cfg.ScrollPauseMs) * time.Millisecond
	countExpr := fmt.Sprintf("document.querySelectorAll(%q).length", f.cfg.CardSelector)

	var tracker stabilityTracker
	for round := 1; round <= maxRounds; round++ {
		if err := chromedp.Run(ctx,
			chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil),
		); err != nil {
			f.log.Warn("[render] scroll failed url=%s err=%v", url, err)
			return
		}

		time.Sleep(pause)

		var count int
		if err := chromedp.Run(ctx, chromedp.Evaluate(countExpr, &count)); err != nil {
			f.log.Warn("[render] card count failed url=%s err=%v", url, err)
			count = 0
		}

		f.log.Debug("[render] scroll=%d cards=%d url=%s", round, count, url)

		if tracker.observe(count) {
			return
		}
	}
}

// startLocked lazily launches the shared browser session. Caller holds f.mu.
func (f *Fetcher) startLocked() error {
	if f.browserCtx != nil {
		return nil
	}
	if f.closed {
		return fmt.Errorf("render: fetcher already closed")
	}

	chromeBin := f.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1600, 900),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	// Force the browser process up front so later fetches reuse it.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return fmt.Errorf("render: launch browser: %w", err)
	}

	f.allocCancel = cancelAlloc
	f.browserCtx = browserCtx
	f.browserCancel = cancelBrowser
	f.log.Info("[render] browser session started (binary: %s)", chromeBin)
	return nil
}

// Close tears the browser session down. Safe to call when the session was
// never started, and calling it twice is a no-op.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true

	if f.browserCancel != nil {
		f.browserCancel()
		f.browserCancel = nil
	}
	if f.allocCancel != nil {
		f.allocCancel()
		f.allocCancel = nil
	}
	f.browserCtx = nil
	f.log.Info("[render] browser session closed")
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
