package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/huntable/jangter/models"
)

// DetailScraper enriches product summaries into full detail records.
// Work runs in bounded-size concurrent batches with a per-item deadline
// shorter than the search budget: enrichment is best-effort and must not
// dominate overall latency.
type DetailScraper struct {
	scrapers       map[models.Source]*Scraper
	batchSize      int
	perItemTimeout time.Duration
}

// NewDetailScraper builds a DetailScraper over the given source scrapers.
func NewDetailScraper(scrapers []*Scraper, batchSize int, perItemTimeout time.Duration) *DetailScraper {
	bySource := make(map[models.Source]*Scraper, len(scrapers))
	for _, sc := range scrapers {
		bySource[sc.Source()] = sc
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &DetailScraper{
		scrapers:       bySource,
		batchSize:      batchSize,
		perItemTimeout: perItemTimeout,
	}
}

// ScrapeDetails returns exactly one detail record per summary, in input
// order. Items whose extraction fails (unknown source, timeout, unusable
// markup) get a synthesized record, so callers can zip inputs and outputs.
func (d *DetailScraper) ScrapeDetails(ctx context.Context, summaries []models.ProductSummary) []models.ProductDetail {
	details := make([]models.ProductDetail, len(summaries))

	g := new(errgroup.Group)
	g.SetLimit(d.batchSize)
	for i, summary := range summaries {
		i, summary := i, summary
		g.Go(func() error {
			sc, ok := d.scrapers[summary.Source]
			if !ok {
				details[i] = synthesizeDetail(summary)
				return nil
			}
			itemCtx, cancel := context.WithTimeout(ctx, d.perItemTimeout)
			defer cancel()
			details[i] = sc.Detail(itemCtx, summary)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return details
}

// synthesizeDetail builds a fallback detail record from the summary alone.
func synthesizeDetail(summary models.ProductSummary) models.ProductDetail {
	title := summary.Title
	if title == "" {
		title = "상품 정보"
	}
	priceText := summary.PriceText
	if priceText == "" {
		if summary.Price > 0 {
			priceText = fmt.Sprintf("%s원", formatWon(summary.Price))
		} else {
			priceText = models.PriceUnknownText
		}
	}

	return models.ProductDetail{
		Title:       title,
		Price:       summary.Price,
		PriceText:   priceText,
		Source:      summary.Source,
		ImageURL:    summary.ImageURL,
		ProductURL:  summary.ProductURL,
		Description: fmt.Sprintf("%s 상품입니다. 자세한 내용은 판매 페이지에서 확인해 주세요.", title),
		Condition:   "확인 필요",
		SellerName:  "판매자 정보 없음",
		Synthesized: true,
		ScrapedAt:   time.Now(),
	}
}

// formatWon renders an int with thousands separators ("920000" → "920,000").
func formatWon(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// detailRules carries the per-source bits of detail-page parsing.
type detailRules struct {
	brand                string
	base                 *url.URL
	titleSelectors       []string
	descriptionSelectors []string
	sellerSelectors      []string
}

// conditionTokens are scanned in order; the first hit wins.
var conditionTokens = []string{
	"미개봉", "새상품", "거의 새것", "사용감 없음", "사용감 적음", "사용감 있음", "고장/파손",
}

// parseDetailPage extracts a rich detail record from a product page.
// Open Graph metadata is the primary channel, since all three sources
// populate it server-side, with DOM selectors as fallbacks. A page without a
// plausible title is rejected so the caller can synthesize instead.
func parseDetailPage(html string, summary models.ProductSummary, rules detailRules) (*models.ProductDetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("detail: parse document: %w", err)
	}

	title := metaContent(doc, `meta[property="og:title"]`)
	title = strings.TrimSpace(strings.TrimSuffix(title, "| "+rules.brand))
	title = strings.TrimSpace(strings.TrimSuffix(title, "- "+rules.brand))
	if title == "" || strings.EqualFold(title, rules.brand) {
		title = textOf(doc.Selection, rules.titleSelectors...)
	}
	title = models.TruncateTitle(title)
	if utf8.RuneCountInString(title) < models.MinTitleLen || strings.EqualFold(title, rules.brand) {
		return nil, fmt.Errorf("detail: no plausible title on %s", summary.ProductURL)
	}

	priceText := findPriceText(
		metaContent(doc, `meta[property="product:price:amount"]`)+"원",
		textOf(doc.Selection, `div[class*="price"]`, `span[class*="price"]`),
		doc.Find("body").Text(),
	)
	price, priceText := priceOrUnknown(priceText)
	if price == 0 && summary.Price > 0 {
		price = summary.Price
		priceText = summary.PriceText
	}

	description := metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`)
	if description == "" {
		description = textOf(doc.Selection, rules.descriptionSelectors...)
	}

	imageURL := normalizeImageURL(rules.base, metaContent(doc, `meta[property="og:image"]`))
	if imageURL == "" {
		imageURL = summary.ImageURL
	}

	seller := textOf(doc.Selection, rules.sellerSelectors...)
	if seller == "" {
		seller = "판매자 정보 없음"
	}

	bodyText := doc.Find("body").Text()
	condition := "확인 필요"
	for _, token := range conditionTokens {
		if strings.Contains(bodyText, token) {
			condition = token
			break
		}
	}

	return &models.ProductDetail{
		Title:       title,
		Price:       price,
		PriceText:   priceText,
		Source:      summary.Source,
		ImageURL:    imageURL,
		ProductURL:  summary.ProductURL,
		Description: strings.Join(strings.Fields(description), " "),
		Condition:   condition,
		SellerName:  seller,
		Location:    textOf(doc.Selection, `span[class*="region"]`, `span[class*="location"]`),
		Specs:       extractSpecs(doc),
		ScrapedAt:   time.Now(),
	}, nil
}

// extractSpecs pulls definition-list pairs (spec tables on product pages).
func extractSpecs(doc *goquery.Document) map[string]string {
	specs := make(map[string]string)
	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		dts := dl.Find("dt")
		dds := dl.Find("dd")
		if dts.Length() == 0 || dts.Length() != dds.Length() {
			return
		}
		dts.Each(func(i int, dt *goquery.Selection) {
			key := strings.Join(strings.Fields(dt.Text()), " ")
			val := strings.Join(strings.Fields(dds.Eq(i).Text()), " ")
			if key != "" && val != "" && len(specs) < 20 {
				specs[key] = val
			}
		})
	})
	if len(specs) == 0 {
		return nil
	}
	return specs
}
