package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huntable/jangter/aggregator"
	"github.com/huntable/jangter/browser"
	"github.com/huntable/jangter/cache"
	"github.com/huntable/jangter/config"
	"github.com/huntable/jangter/engine"
	"github.com/huntable/jangter/models"
	"github.com/huntable/jangter/sources"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubSearcher feeds the aggregator canned products.
type stubSearcher struct {
	source  models.Source
	results []models.Product
}

func (s *stubSearcher) Source() models.Source { return s.source }

func (s *stubSearcher) Search(ctx context.Context, query string, limit int, forceRefresh bool) []models.Product {
	return s.results
}

// stubExtractor and stubFetcher let the detail pipeline run without network.
type stubExtractor struct {
	source models.Source
	detail *models.ProductDetail
}

func (s *stubExtractor) Source() models.Source                              { return s.source }
func (s *stubExtractor) SearchURL(string, config.RuntimeProfile) string     { return "https://example.com" }
func (s *stubExtractor) SearchMarkers() (string, string)                    { return "a", "a" }
func (s *stubExtractor) BlockMarkers() []string                             { return nil }
func (s *stubExtractor) Headers() map[string]string                         { return nil }
func (s *stubExtractor) ExtractSearch(string, int) []models.Product         { return nil }
func (s *stubExtractor) ExtractDetail(_ string, _ models.ProductSummary) (*models.ProductDetail, error) {
	return s.detail, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, req *engine.FetchRequest, usable engine.UsableFunc) (*engine.FetchResult, error) {
	result := &engine.FetchResult{HTML: "<html>detail</html>", EngineName: "http", FinalURL: req.URL}
	if usable != nil {
		usable(result)
	}
	return result, nil
}

func postJSON(t *testing.T, h gin.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	r := gin.New()
	r.POST(path, h)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSearchHandler(t *testing.T) {
	agg := aggregator.New([]aggregator.Searcher{
		&stubSearcher{source: models.SourceBunjang, results: []models.Product{{
			ID:         "bunjang-test",
			Title:      "아이폰 15 프로",
			Price:      920000,
			PriceText:  "920,000원",
			Source:     models.SourceBunjang,
			ProductURL: "https://m.bunjang.co.kr/products/1",
		}}},
	}, time.Second, 3, nil)

	w := postJSON(t, Search(agg), "/search", models.SearchRequest{Query: "아이폰 15"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "아이폰 15 프로", resp.Products[0].Title)
	assert.GreaterOrEqual(t, resp.ExecutionTimeMs, int64(0))
}

func TestSearchHandler_MissingQuery(t *testing.T) {
	agg := aggregator.New(nil, time.Second, 3, nil)

	w := postJSON(t, Search(agg), "/search", map[string]any{"limit": 10})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
}

func TestSearchHandler_BlankQuery(t *testing.T) {
	agg := aggregator.New(nil, time.Second, 3, nil)

	w := postJSON(t, Search(agg), "/search", models.SearchRequest{Query: "   "})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
}

func TestDetailsHandler(t *testing.T) {
	profile := config.RuntimeProfile{DetailTimeout: time.Second}
	sc := sources.NewScraper(
		&stubExtractor{source: models.SourceBunjang, detail: &models.ProductDetail{
			Title:  "아이폰 15 프로 256GB",
			Source: models.SourceBunjang,
		}},
		stubFetcher{},
		nil,
		config.ScraperConfig{DetailBatchSize: 3},
		profile,
	)
	ds := sources.NewDetailScraper([]*sources.Scraper{sc}, 3, time.Second)

	req := models.DetailRequest{Products: []models.ProductSummary{
		{Source: models.SourceBunjang, ProductURL: "https://m.bunjang.co.kr/products/1"},
		{Source: models.SourceJoonggonara, ProductURL: "https://web.joongna.com/product/2", Title: "맥북"},
	}}
	w := postJSON(t, Details(ds), "/products/details", req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.DetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Details, 2, "one detail per requested product")
	assert.False(t, resp.Details[0].Synthesized)
	assert.True(t, resp.Details[1].Synthesized, "source without a scraper must synthesize")
	assert.Equal(t, "맥북", resp.Details[1].Title)
}

func TestDetailsHandler_RejectsUnknownSource(t *testing.T) {
	ds := sources.NewDetailScraper(nil, 3, time.Second)

	req := models.DetailRequest{Products: []models.ProductSummary{
		{Source: "ebay", ProductURL: "https://www.ebay.com/itm/1"},
	}}
	w := postJSON(t, Details(ds), "/products/details", req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp models.DetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
}

func TestDetailsHandler_RejectsEmptyList(t *testing.T) {
	ds := sources.NewDetailScraper(nil, 3, time.Second)

	w := postJSON(t, Details(ds), "/products/details", models.DetailRequest{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthHandler(t *testing.T) {
	mgr := browser.NewManager(config.BrowserConfig{Headless: true}, config.RuntimeProfile{})

	r := gin.New()
	r.GET("/health", Health(mgr, time.Now().Add(-2*time.Second)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "uninitialized", resp.Browser.State, "lazy browser must stay unlaunched")
	assert.Equal(t, models.ScrapableSources, resp.Sources)
	assert.NotEmpty(t, resp.Uptime)
}

func TestClearCacheHandler(t *testing.T) {
	store := cache.New(16, time.Minute)
	key := cache.Key(models.SourceBunjang, "search", map[string]any{"q": "아이폰"})
	store.Set(key, []models.Product{{Title: "x", ProductURL: "https://m.bunjang.co.kr/products/1"}})

	r := gin.New()
	r.DELETE("/cache", ClearCache(store))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cache", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.CacheClearResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Evicted)

	if _, hit := store.Get(key); hit {
		t.Error("cache should be empty after clear")
	}
}
