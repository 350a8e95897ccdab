package engine

import (
	"context"
	"time"
)

// Engine is one page-acquisition strategy. Implementations must treat every
// failure (timeouts, blocks, unrecognizable markup) as an ordinary error
// return; the Chain decides what to try next.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "rod").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
// Engines ignore the fields that don't apply to them: the HTTP engine uses
// the validation fields, the browser engine uses the wait/scroll fields.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration

	// MinBodyBytes is the smallest response body accepted as a real page.
	MinBodyBytes int

	// BlockMarkers are case-insensitive substrings whose presence means the
	// source served a block/CAPTCHA interstitial instead of results.
	BlockMarkers []string

	// WaitSelector is the marker proving listings have rendered. When it
	// times out, FallbackSelector is tried once before giving up.
	WaitSelector     string
	FallbackSelector string

	// ScrollSteps programmatic scrolls (ScrollDelay apart) flush
	// lazy-loaded listings before the HTML snapshot.
	ScrollSteps int
	ScrollDelay time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	StatusCode int
	FinalURL   string
	EngineName string
}
