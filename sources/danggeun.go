package sources

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/huntable/jangter/config"
	"github.com/huntable/jangter/models"
)

const danggeunBrand = "당근마켓"

var danggeunBase = mustParseURL("https://www.daangn.com")

// Danggeun tags its search result cards with a GTM data attribute, which
// has outlived several of its frontend rewrites.
var danggeunCardMatcher = cascadia.MustCompile(`a[data-gtm="search_article"]`)

// Danggeun scrapes www.daangn.com buy-sell search results. Danggeun is a
// neighborhood marketplace, so its search endpoint is localized: the region
// comes from the runtime profile.
type Danggeun struct{}

func NewDanggeun() *Danggeun { return &Danggeun{} }

func (d *Danggeun) Source() models.Source { return models.SourceDanggeun }

func (d *Danggeun) SearchURL(query string, profile config.RuntimeProfile) string {
	params := url.Values{}
	params.Set("in", profile.Region)
	params.Set("search", query)
	return danggeunBase.String() + "/kr/buy-sell/?" + params.Encode()
}

func (d *Danggeun) SearchMarkers() (string, string) {
	return `a[data-gtm="search_article"]`, `a[href*="/buy-sell/"]`
}

func (d *Danggeun) BlockMarkers() []string {
	return []string{"captcha", "access denied", "잠시 후 다시 시도"}
}

func (d *Danggeun) Headers() map[string]string {
	return map[string]string{
		"Referer": "https://www.daangn.com/",
	}
}

func (d *Danggeun) ExtractSearch(html string, limit int) []models.Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	cards := doc.FindMatcher(danggeunCardMatcher)
	if cards.Length() == 0 {
		// Server-rendered variant without GTM tags.
		cards = doc.Find(`a[href*="/buy-sell/"]`)
	}

	var products []models.Product
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if p, ok := d.extractCard(card); ok {
			products = append(products, p)
		}
		return len(products) < limit
	})
	return products
}

func (d *Danggeun) extractCard(card *goquery.Selection) (models.Product, bool) {
	productURL := absoluteURL(danggeunBase, firstAttr(card, "href"))
	if productURL == "" {
		return models.Product{}, false
	}

	title := pickTitle(danggeunBrand,
		textOf(card, `span[class*="lc-2"]`, `div[class*="title"]`, "h2"),
		firstAttr(card.Find("img").First(), "alt"),
	)
	if title == "" {
		return models.Product{}, false
	}

	price, priceText := priceOrUnknown(findPriceText(
		textOf(card, `span[class*="price"]`, `div[class*="price"]`),
		card.Text(),
	))

	return models.Product{
		ID:         models.NewProductID(models.SourceDanggeun),
		Title:      title,
		Price:      price,
		PriceText:  priceText,
		Source:     models.SourceDanggeun,
		ImageURL:   cardImage(card, danggeunBase),
		ProductURL: productURL,
		Location:   textOf(card, `span[class*="region"]`, `span[class*="location"]`),
		Timestamp:  findRelativeTime(card.Text()),
	}, true
}

func (d *Danggeun) ExtractDetail(html string, summary models.ProductSummary) (*models.ProductDetail, error) {
	return parseDetailPage(html, summary, detailRules{
		brand: danggeunBrand,
		base:  danggeunBase,
		titleSelectors: []string{
			"h1",
			`h3[class*="title"]`,
		},
		descriptionSelectors: []string{
			`div[id*="article-description"]`,
			`div[class*="description"]`,
			`article p`,
		},
		sellerSelectors: []string{
			`a[href*="/users/"] span`,
			`div[class*="nickname"]`,
		},
	})
}
