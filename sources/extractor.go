package sources

import (
	"github.com/huntable/jangter/config"
	"github.com/huntable/jangter/models"
)

// Extractor is the per-marketplace adapter. Each variant owns everything
// that is brittle about its site (URL shapes, selectors, block heuristics)
// behind a uniform contract, so a site redesign only ever costs one file.
//
// Extraction rules are deliberately layered candidate lists rather than
// single selectors: these pages are not under our control and change
// without notice.
type Extractor interface {
	// Source identifies the marketplace.
	Source() models.Source

	// SearchURL builds the search endpoint for a query. The profile carries
	// the region parameter for localized sources.
	SearchURL(query string, profile config.RuntimeProfile) string

	// SearchMarkers returns the selector proving listings rendered, and a
	// looser fallback tried when the primary times out.
	SearchMarkers() (primary, fallback string)

	// BlockMarkers are substrings indicating a block/CAPTCHA interstitial.
	BlockMarkers() []string

	// Headers are source-specific request header overrides for fast-fetch.
	Headers() map[string]string

	// ExtractSearch parses up to limit listings out of a search-results
	// page, preserving document order. Cards missing a title or URL are
	// silently dropped; an unrecognizable page yields an empty slice, never
	// an error.
	ExtractSearch(html string, limit int) []models.Product

	// ExtractDetail parses a single product page into a rich detail record.
	// Unlike ExtractSearch it returns an error on unusable markup, so the
	// caller can synthesize a fallback from the summary instead.
	ExtractDetail(html string, summary models.ProductSummary) (*models.ProductDetail, error)
}
