package aggregator

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/huntable/jangter/models"
)

// Searcher is one source's best-effort search capability.
// Implemented by *sources.Scraper.
type Searcher interface {
	Source() models.Source
	Search(ctx context.Context, query string, limit int, forceRefresh bool) []models.Product
}

// Aggregator fans a query out to the selected source scrapers, merges their
// results, deduplicates by product URL, sorts by ascending price, and
// truncates to the requested limit.
//
// Each source runs under its own deadline so one slow marketplace cannot
// starve the rest, and a failing source simply contributes zero products.
type Aggregator struct {
	searchers     map[models.Source]Searcher
	sourceBudget  time.Duration
	maxConcurrent int
	metrics       *Metrics
}

// New creates an Aggregator. metrics may be nil to disable instrumentation.
func New(searchers []Searcher, sourceBudget time.Duration, maxConcurrent int, metrics *Metrics) *Aggregator {
	bySource := make(map[models.Source]Searcher, len(searchers))
	for _, s := range searchers {
		bySource[s.Source()] = s
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Aggregator{
		searchers:     bySource,
		sourceBudget:  sourceBudget,
		maxConcurrent: maxConcurrent,
		metrics:       metrics,
	}
}

// Search runs the multi-source search. The only error it can return is
// invalid input (blank query); "every source came back empty" is a valid
// result, not a failure.
func (a *Aggregator) Search(ctx context.Context, query string, srcs []models.Source, limit int, forceRefresh bool) ([]models.Product, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "query must not be blank", nil)
	}
	if limit <= 0 {
		limit = 20
	}
	if len(srcs) == 0 {
		srcs = models.ScrapableSources
	}

	var mu sync.Mutex
	var merged []models.Product

	// Plain errgroup, not WithContext: one source failing or timing out
	// must not cancel its siblings.
	g := new(errgroup.Group)
	g.SetLimit(a.maxConcurrent)
	for _, src := range srcs {
		src := src
		searcher, ok := a.searchers[src]
		if !ok {
			continue
		}
		g.Go(func() error {
			srcCtx, cancel := context.WithTimeout(ctx, a.sourceBudget)
			defer cancel()

			products := searcher.Search(srcCtx, query, limit, forceRefresh)
			a.metrics.observeSource(src, len(products))

			mu.Lock()
			merged = append(merged, products...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	results := truncate(sortByPrice(dedupeByURL(merged)), limit)

	a.metrics.observeSearch(len(results), time.Since(start))
	slog.Info("aggregated search complete",
		"query", query,
		"sources", len(srcs),
		"results", len(results),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return results, nil
}

// dedupeByURL keeps the first occurrence of each product URL. Order is
// otherwise preserved, so within one source the document order survives.
func dedupeByURL(products []models.Product) []models.Product {
	seen := make(map[string]struct{}, len(products))
	out := products[:0]
	for _, p := range products {
		if p.ProductURL == "" {
			continue
		}
		if _, dup := seen[p.ProductURL]; dup {
			continue
		}
		seen[p.ProductURL] = struct{}{}
		out = append(out, p)
	}
	return out
}

// sortByPrice sorts ascending by price. The sort is stable so equal-priced
// listings keep their source order; unknown prices (0) sort first.
func sortByPrice(products []models.Product) []models.Product {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Price < products[j].Price
	})
	return products
}

func truncate(products []models.Product, limit int) []models.Product {
	if len(products) > limit {
		products = products[:limit]
	}
	if products == nil {
		products = []models.Product{}
	}
	return products
}
