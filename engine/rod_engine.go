package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/huntable/jangter/browser"
	"github.com/huntable/jangter/models"
)

// RodEngine is the browser-driven strategy: render the page in the shared
// headless browser, wait for the listing marker to appear, scroll to flush
// lazy-loaded cards, then snapshot the DOM. Slower than the HTTP engine but
// works against sources that inject listings client-side.
type RodEngine struct {
	sessions *browser.Manager
	timeout  time.Duration
}

// NewRodEngine creates a RodEngine backed by the shared session manager.
// timeout is the navigation deadline applied when a request carries none;
// it is deliberately longer than the fast-fetch deadline.
func NewRodEngine(sessions *browser.Manager, timeout time.Duration) *RodEngine {
	return &RodEngine{sessions: sessions, timeout: timeout}
}

func (e *RodEngine) Name() string { return "rod" }

// Fetch navigates a fresh tab to the URL and returns the rendered HTML.
//
// The tab is always closed on exit, including on context expiry: cleanup
// holds the unbound page reference, so it works after the deadline.
func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = e.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	page, cleanup, err := e.sessions.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("rod_engine: %w", err)
	}
	defer cleanup()

	if len(req.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(req.Headers),
		}.Call(page)
	}

	// Bind the request context so every operation below honors the deadline.
	p := page.Context(ctx)

	if err := p.Navigate(req.URL); err != nil {
		return nil, categorizeError(err, "rod_engine: navigation failed")
	}

	e.waitForListings(p, req)
	e.scrollForLazyContent(ctx, p, req)

	html, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "rod_engine: snapshot failed")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &FetchResult{
		HTML:       html,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// waitForListings waits for the primary marker selector, then the fallback.
// Both failing is not fatal by itself: extraction on the snapshot decides
// whether anything usable rendered.
func (e *RodEngine) waitForListings(p *rod.Page, req *FetchRequest) {
	if req.WaitSelector == "" {
		_ = p.WaitDOMStable(300*time.Millisecond, 0.1)
		return
	}

	if err := p.Timeout(5 * time.Second).WaitElementsMoreThan(req.WaitSelector, 0); err == nil {
		return
	}

	if req.FallbackSelector != "" {
		if err := p.Timeout(3 * time.Second).WaitElementsMoreThan(req.FallbackSelector, 0); err == nil {
			return
		}
	}

	slog.Debug("listing markers never appeared, snapshotting current DOM",
		"url", req.URL, "selector", req.WaitSelector)
}

// scrollForLazyContent triggers a bounded number of viewport scrolls with
// short delays so client-side lazy loading materializes the remaining cards.
func (e *RodEngine) scrollForLazyContent(ctx context.Context, p *rod.Page, req *FetchRequest) {
	delay := req.ScrollDelay
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	for i := 0; i < req.ScrollSteps; i++ {
		if _, err := p.Eval(`() => window.scrollBy(0, window.innerHeight)`); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw rod errors into typed ScrapeErrors.
func categorizeError(err error, msg string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
