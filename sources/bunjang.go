package sources

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/huntable/jangter/config"
	"github.com/huntable/jangter/models"
)

const bunjangBrand = "번개장터"

var bunjangBase = mustParseURL("https://m.bunjang.co.kr")

// Bunjang renders product cards as anchors carrying a stable data-pid
// attribute; everything else about its class names is build-hash noise.
var bunjangCardMatcher = cascadia.MustCompile(`a[data-pid]`)

// Product anchors always link to /products/<id>, with or without data-pid.
var reBunjangProductHref = regexp.MustCompile(`^/products/\d+`)

// voidTags never produce end tags; counting them would skew depth tracking.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Bunjang scrapes m.bunjang.co.kr search results.
type Bunjang struct{}

func NewBunjang() *Bunjang { return &Bunjang{} }

func (b *Bunjang) Source() models.Source { return models.SourceBunjang }

func (b *Bunjang) SearchURL(query string, _ config.RuntimeProfile) string {
	return bunjangBase.String() + "/search/products?order=score&q=" + url.QueryEscape(query)
}

func (b *Bunjang) SearchMarkers() (string, string) {
	return `a[data-pid]`, `a[href*="/products/"]`
}

func (b *Bunjang) BlockMarkers() []string {
	return []string{"captcha", "access denied", "비정상적인 접근", "잠시 후 다시"}
}

func (b *Bunjang) Headers() map[string]string {
	return map[string]string{
		"Referer": "https://m.bunjang.co.kr/",
	}
}

func (b *Bunjang) ExtractSearch(htmlText string, limit int) []models.Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return b.extractFromRaw(htmlText, limit)
	}

	var products []models.Product
	doc.FindMatcher(bunjangCardMatcher).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if p, ok := b.extractCard(card); ok {
			products = append(products, p)
		}
		return len(products) < limit
	})

	// Class obfuscation occasionally breaks the DOM path entirely; the
	// tokenizer walk over raw HTML is the last resort.
	if len(products) == 0 {
		return b.extractFromRaw(htmlText, limit)
	}
	return products
}

func (b *Bunjang) extractCard(card *goquery.Selection) (models.Product, bool) {
	productURL := absoluteURL(bunjangBase, firstAttr(card, "href"))
	if productURL == "" {
		return models.Product{}, false
	}

	title := pickTitle(bunjangBrand,
		firstAttr(card.Find("img").First(), "alt"),
		textOf(card, `div[class*="name"]`, `.sc-product-title`),
		card.Children().Last().Text(),
	)
	if title == "" {
		return models.Product{}, false
	}

	price, priceText := priceOrUnknown(findPriceText(card.Text()))

	return models.Product{
		ID:         models.NewProductID(models.SourceBunjang),
		Title:      title,
		Price:      price,
		PriceText:  priceText,
		Source:     models.SourceBunjang,
		ImageURL:   cardImage(card, bunjangBase),
		ProductURL: productURL,
		Timestamp:  findRelativeTime(card.Text()),
	}, true
}

// rawCard accumulates one product anchor's content during the tokenizer walk.
type rawCard struct {
	href   string
	alt    string
	imgSrc string
	text   strings.Builder
}

func (c *rawCard) toProduct() (models.Product, bool) {
	productURL := absoluteURL(bunjangBase, c.href)
	if productURL == "" {
		return models.Product{}, false
	}
	innerText := strings.Join(strings.Fields(c.text.String()), " ")
	title := pickTitle(bunjangBrand, c.alt, innerText)
	if title == "" {
		return models.Product{}, false
	}

	price, priceText := priceOrUnknown(findPriceText(innerText))

	return models.Product{
		ID:         models.NewProductID(models.SourceBunjang),
		Title:      title,
		Price:      price,
		PriceText:  priceText,
		Source:     models.SourceBunjang,
		ImageURL:   normalizeImageURL(bunjangBase, c.imgSrc),
		ProductURL: productURL,
		Timestamp:  findRelativeTime(innerText),
	}, true
}

// extractFromRaw walks the raw token stream and rebuilds product cards from
// /products/ anchors, for pages whose markup goquery cannot make sense of.
// The tokenizer survives unbalanced tags that break tree construction.
func (b *Bunjang) extractFromRaw(htmlText string, limit int) []models.Product {
	z := html.NewTokenizer(strings.NewReader(htmlText))

	var products []models.Product
	var card *rawCard
	depth := 0

	for len(products) < limit {
		switch z.Next() {
		case html.ErrorToken:
			return products

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "a":
				href := attrVal(tok, "href")
				if card == nil && reBunjangProductHref.MatchString(href) {
					card = &rawCard{href: href}
					depth = 0
				} else if card != nil && tok.Type == html.StartTagToken {
					depth++
				}
			case "img":
				if card != nil {
					if card.alt == "" {
						card.alt = attrVal(tok, "alt")
					}
					if card.imgSrc == "" {
						card.imgSrc = firstTokenAttr(tok, "data-original", "data-src", "src")
					}
				}
			default:
				if card != nil && tok.Type == html.StartTagToken && !voidTags[tok.Data] {
					depth++
				}
			}

		case html.TextToken:
			if card != nil {
				card.text.WriteString(string(z.Text()))
				card.text.WriteByte(' ')
			}

		case html.EndTagToken:
			if card == nil {
				continue
			}
			if depth > 0 {
				depth--
				continue
			}
			// Closing the card anchor itself.
			if p, ok := card.toProduct(); ok {
				products = append(products, p)
			}
			card = nil
		}
	}
	return products
}

// attrVal returns the value of the named attribute on a token, or "".
func attrVal(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// firstTokenAttr returns the first non-empty attribute among names.
func firstTokenAttr(tok html.Token, names ...string) string {
	for _, n := range names {
		if v := attrVal(tok, n); v != "" {
			return v
		}
	}
	return ""
}

func (b *Bunjang) ExtractDetail(htmlText string, summary models.ProductSummary) (*models.ProductDetail, error) {
	return parseDetailPage(htmlText, summary, detailRules{
		brand: bunjangBrand,
		base:  bunjangBase,
		titleSelectors: []string{
			`div[class*="ProductName"]`,
			"h1",
		},
		descriptionSelectors: []string{
			`div[class*="ProductDescription"]`,
			`div[class*="description"]`,
		},
		sellerSelectors: []string{
			`a[href*="/shop/"] div[class*="name"]`,
			`a[href*="/shop/"]`,
		},
	})
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
