package sources

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/huntable/jangter/config"
	"github.com/huntable/jangter/models"
)

const joonggonaraBrand = "중고나라"

var joonggonaraBase = mustParseURL("https://web.joongna.com")

// Joonggonara cards are anchors into /product/<id>; the utility-class soup
// around them changes per deploy, the href shape does not.
var joonggonaraCardMatcher = cascadia.MustCompile(`a[href^="/product/"]`)

// Joonggonara scrapes web.joongna.com search results.
type Joonggonara struct{}

func NewJoonggonara() *Joonggonara { return &Joonggonara{} }

func (j *Joonggonara) Source() models.Source { return models.SourceJoonggonara }

func (j *Joonggonara) SearchURL(query string, _ config.RuntimeProfile) string {
	return joonggonaraBase.String() + "/search/" + url.PathEscape(query)
}

func (j *Joonggonara) SearchMarkers() (string, string) {
	return `a[href^="/product/"]`, `main a[href*="/product/"]`
}

func (j *Joonggonara) BlockMarkers() []string {
	return []string{"captcha", "access denied", "요청이 차단", "비정상적인 접근"}
}

func (j *Joonggonara) Headers() map[string]string {
	return map[string]string{
		"Referer": "https://web.joongna.com/",
	}
}

func (j *Joonggonara) ExtractSearch(html string, limit int) []models.Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var products []models.Product
	doc.FindMatcher(joonggonaraCardMatcher).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if p, ok := j.extractCard(card); ok {
			products = append(products, p)
		}
		return len(products) < limit
	})
	return products
}

func (j *Joonggonara) extractCard(card *goquery.Selection) (models.Product, bool) {
	productURL := absoluteURL(joonggonaraBase, firstAttr(card, "href"))
	if productURL == "" {
		return models.Product{}, false
	}

	title := pickTitle(joonggonaraBrand,
		textOf(card, `.line-clamp-2`, `h2`, `div[class*="title"]`),
		firstAttr(card.Find("img").First(), "alt"),
	)
	if title == "" {
		return models.Product{}, false
	}

	price, priceText := priceOrUnknown(findPriceText(
		textOf(card, `.font-semibold`, `div[class*="price"]`),
		card.Text(),
	))

	return models.Product{
		ID:         models.NewProductID(models.SourceJoonggonara),
		Title:      title,
		Price:      price,
		PriceText:  priceText,
		Source:     models.SourceJoonggonara,
		ImageURL:   cardImage(card, joonggonaraBase),
		ProductURL: productURL,
		Location:   textOf(card, `.text-gray-400 span`, `span[class*="region"]`),
		Timestamp:  findRelativeTime(card.Text()),
	}, true
}

func (j *Joonggonara) ExtractDetail(html string, summary models.ProductSummary) (*models.ProductDetail, error) {
	return parseDetailPage(html, summary, detailRules{
		brand: joonggonaraBrand,
		base:  joonggonaraBase,
		titleSelectors: []string{
			"h1",
			`div[class*="product-title"]`,
		},
		descriptionSelectors: []string{
			`article`,
			`div[class*="description"]`,
		},
		sellerSelectors: []string{
			`a[href*="/store/"] span`,
			`div[class*="store-name"]`,
		},
	})
}
