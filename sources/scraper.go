package sources

import (
	"context"
	"log/slog"
	"strings"

	"github.com/huntable/jangter/cache"
	"github.com/huntable/jangter/config"
	"github.com/huntable/jangter/engine"
	"github.com/huntable/jangter/models"
)

// Fetcher is the strategy chain a scraper fetches pages through.
// Satisfied by *engine.Chain; tests substitute counting stubs.
type Fetcher interface {
	Fetch(ctx context.Context, req *engine.FetchRequest, usable engine.UsableFunc) (*engine.FetchResult, error)
}

// searchParams is the cache fingerprint payload for a search.
type searchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Scraper orchestrates one marketplace: cache lookup → fast-fetch →
// browser fallback → cache write. Its public methods honor the best-effort
// contract: they never return an error and never panic out; every internal
// failure collapses to an empty (or synthesized) result.
type Scraper struct {
	extractor Extractor
	fetcher   Fetcher
	store     *cache.Store
	cfg       config.ScraperConfig
	profile   config.RuntimeProfile
	logger    *slog.Logger
}

// NewScraper wires a Scraper for one marketplace. store may be nil to
// disable caching.
func NewScraper(extractor Extractor, fetcher Fetcher, store *cache.Store, cfg config.ScraperConfig, profile config.RuntimeProfile) *Scraper {
	return &Scraper{
		extractor: extractor,
		fetcher:   fetcher,
		store:     store,
		cfg:       cfg,
		profile:   profile,
		logger:    slog.Default().With("source", extractor.Source()),
	}
}

// Source identifies the marketplace this scraper serves.
func (s *Scraper) Source() models.Source {
	return s.extractor.Source()
}

// Search returns up to limit listings for query, preserving the document
// order of the source page. The result may be empty; it is never nil and
// the method never fails.
func (s *Scraper) Search(ctx context.Context, query string, limit int, forceRefresh bool) (products []models.Product) {
	// Last line of the no-throw contract: even a bug in extraction must
	// not escape a single-source scrape.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scrape panicked", "query", query, "panic", r)
			products = []models.Product{}
		}
	}()

	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []models.Product{}
	}

	key := cache.Key(s.Source(), "search", searchParams{Query: query, Limit: limit})

	if !forceRefresh && s.store != nil {
		if cached, hit := s.store.Get(key); hit {
			s.logger.Debug("cache hit", "query", query, "count", len(cached))
			return cached
		}
	}

	primary, fallback := s.extractor.SearchMarkers()
	req := &engine.FetchRequest{
		URL:              s.extractor.SearchURL(query, s.profile),
		Headers:          s.extractor.Headers(),
		MinBodyBytes:     s.cfg.MinBodyBytes,
		BlockMarkers:     s.extractor.BlockMarkers(),
		WaitSelector:     primary,
		FallbackSelector: fallback,
		ScrollSteps:      s.cfg.ScrollSteps,
		ScrollDelay:      s.cfg.ScrollDelay,
	}

	// The usable predicate runs the extraction rules, so a page that
	// fetched fine but parses to zero listings falls through to the next
	// strategy exactly like a network failure would.
	var extracted []models.Product
	usable := func(res *engine.FetchResult) bool {
		extracted = s.extractor.ExtractSearch(res.HTML, limit)
		return len(extracted) > 0
	}

	result, err := s.fetcher.Fetch(ctx, req, usable)
	if err != nil {
		s.logger.Warn("all extraction strategies failed", "query", query, "error", err)
		return []models.Product{}
	}

	s.logger.Info("search extracted",
		"query", query,
		"count", len(extracted),
		"engine", result.EngineName,
	)

	if len(extracted) > 0 && s.store != nil {
		s.store.Set(key, extracted)
	}
	return extracted
}

// Detail fetches and parses a single product page. On any failure it
// synthesizes a record from the summary, so the caller always gets exactly
// one detail per input.
func (s *Scraper) Detail(ctx context.Context, summary models.ProductSummary) (detail models.ProductDetail) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("detail scrape panicked", "url", summary.ProductURL, "panic", r)
			detail = synthesizeDetail(summary)
		}
	}()

	req := &engine.FetchRequest{
		URL:          summary.ProductURL,
		Headers:      s.extractor.Headers(),
		MinBodyBytes: s.cfg.MinBodyBytes,
		BlockMarkers: s.extractor.BlockMarkers(),
	}

	var parsed *models.ProductDetail
	usable := func(res *engine.FetchResult) bool {
		d, err := s.extractor.ExtractDetail(res.HTML, summary)
		if err != nil {
			s.logger.Debug("detail extraction rejected", "url", summary.ProductURL, "error", err)
			return false
		}
		parsed = d
		return true
	}

	if _, err := s.fetcher.Fetch(ctx, req, usable); err != nil || parsed == nil {
		s.logger.Debug("falling back to synthesized detail", "url", summary.ProductURL, "error", err)
		return synthesizeDetail(summary)
	}
	return *parsed
}
