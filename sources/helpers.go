package sources

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/huntable/jangter/models"
)

// rePriceText matches a currency-suffixed amount ("920,000원", "1,500 원").
// Requiring the 원 suffix keeps unrelated numbers (view counts, years, model
// numbers) from being picked up as prices.
var rePriceText = regexp.MustCompile(`[0-9][0-9,.]*\s*원`)

// priceFloor is the plausibility floor in won. Listing prices below this are
// far more likely to be favorite counts or badge numbers than real prices.
const priceFloor = 1000

// reRelativeTime matches the relative timestamps the sources render
// ("3분 전", "2시간 전", "5일 전").
var reRelativeTime = regexp.MustCompile(`\d+\s*(분|시간|일|주|개월|년)\s*전`)

// junkImageTokens mark thumbnails that are site chrome, not listing photos.
var junkImageTokens = []string{"avatar", "icon", "logo", "profile", "sprite", "placeholder", "default_img"}

// findPriceText returns the first currency-suffixed substring above the
// plausibility floor among the candidates, or "".
func findPriceText(candidates ...string) string {
	for _, c := range candidates {
		for _, match := range rePriceText.FindAllString(c, -1) {
			if models.ParsePrice(match) >= priceFloor {
				return strings.Join(strings.Fields(match), "")
			}
		}
	}
	return ""
}

// findRelativeTime returns the first relative-timestamp substring among the
// candidates, or "".
func findRelativeTime(candidates ...string) string {
	for _, c := range candidates {
		if m := reRelativeTime.FindString(c); m != "" {
			return strings.Join(strings.Fields(m), " ")
		}
	}
	return ""
}

// absoluteURL resolves href against base, returning an absolute https URL
// or "" when href is unusable (empty, javascript:, fragment-only).
func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// normalizeImageURL turns a thumbnail candidate into an absolute https URL,
// rejecting site-chrome images. Protocol-relative URLs get https.
func normalizeImageURL(base *url.URL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" || isJunkImage(src) {
		return ""
	}
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return absoluteURL(base, src)
}

// isJunkImage reports whether the filename looks like an avatar/icon/logo
// rather than a listing photo.
func isJunkImage(src string) bool {
	lower := strings.ToLower(src)
	for _, token := range junkImageTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// firstAttr returns the first non-empty attribute among attrs on sel's first
// matched element.
func firstAttr(sel *goquery.Selection, attrs ...string) string {
	for _, attr := range attrs {
		if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// pickTitle returns the first usable candidate: non-empty after whitespace
// collapsing, at least MinTitleLen runes, and not the site's own brand name
// (brand text leaks into cards via badge elements). The winner is truncated
// to the bounded title length.
func pickTitle(brand string, candidates ...string) string {
	for _, c := range candidates {
		c = strings.Join(strings.Fields(c), " ")
		if utf8.RuneCountInString(c) < models.MinTitleLen {
			continue
		}
		if strings.EqualFold(c, brand) {
			continue
		}
		return models.TruncateTitle(c)
	}
	return ""
}

// cardImage walks the card's <img> elements and returns the first usable
// thumbnail, honoring the lazy-load attribute priority order.
func cardImage(card *goquery.Selection, base *url.URL) string {
	img := ""
	card.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		candidate := firstAttr(s, "data-original", "data-src", "data-lazy-src", "src", "srcset")
		if candidate == "" {
			return true
		}
		// srcset: take the first URL token.
		if i := strings.IndexAny(candidate, " ,"); i > 0 && strings.Contains(candidate, " ") {
			candidate = candidate[:i]
		}
		if normalized := normalizeImageURL(base, candidate); normalized != "" {
			img = normalized
			return false
		}
		return true
	})
	return img
}

// textOf returns the collapsed text of the first element matching any of the
// selectors under sel, or "".
func textOf(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if t := strings.Join(strings.Fields(sel.Find(s).First().Text()), " "); t != "" {
			return t
		}
	}
	return ""
}

// metaContent returns the content attribute of the first matching meta tag.
func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, s := range selectors {
		if v, ok := doc.Find(s).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// priceOrUnknown pairs a parsed price with its display text, substituting
// the inquiry sentinel when no plausible price was found.
func priceOrUnknown(priceText string) (int, string) {
	if priceText == "" {
		return 0, models.PriceUnknownText
	}
	price := models.ParsePrice(priceText)
	if price < priceFloor {
		return 0, models.PriceUnknownText
	}
	return price, priceText
}
