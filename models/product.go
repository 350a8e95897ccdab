package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Source identifies the marketplace a listing was scraped from.
type Source string

const (
	SourceBunjang     Source = "bunjang"
	SourceJoonggonara Source = "joonggonara"
	SourceDanggeun    Source = "danggeun"

	// SourceNaver is a new-price reference only; it has no scraper of its own
	// and appears solely in price-comparison fields.
	SourceNaver Source = "naver"
)

// ScrapableSources lists the sources that have a search scraper, in the
// order they are searched when a request does not name any.
var ScrapableSources = []Source{SourceBunjang, SourceJoonggonara, SourceDanggeun}

// Valid reports whether s names a source with a search scraper.
func (s Source) Valid() bool {
	switch s {
	case SourceBunjang, SourceJoonggonara, SourceDanggeun:
		return true
	}
	return false
}

// ParseSources converts the raw source names of an API request into Source
// values, dropping unknown names. An empty input selects every scrapable
// source.
func ParseSources(names []string) []Source {
	if len(names) == 0 {
		out := make([]Source, len(ScrapableSources))
		copy(out, ScrapableSources)
		return out
	}
	seen := make(map[Source]struct{}, len(names))
	var out []Source
	for _, n := range names {
		s := Source(strings.ToLower(strings.TrimSpace(n)))
		if !s.Valid() {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// PriceUnknownText is the display fallback when a listing's price cannot be
// parsed ("price inquiry").
const PriceUnknownText = "가격 문의"

// MaxTitleLen bounds the stored title length in runes.
const MaxTitleLen = 160

// MinTitleLen is the shortest title accepted at extraction time; shorter
// candidates are treated as extraction noise and the card is dropped.
const MinTitleLen = 2

// Product is the canonical normalized listing handed across the API boundary.
//
// Title and ProductURL are always non-empty; extraction discards any card
// where either is missing. ProductURL doubles as the deduplication key.
// Price is in won; 0 means unknown, with PriceText as the display fallback.
type Product struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Price      int    `json:"price"`
	PriceText  string `json:"priceText"`
	Source     Source `json:"source"`
	ImageURL   string `json:"imageUrl"`
	ProductURL string `json:"productUrl"`
	Location   string `json:"location,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// ProductSummary is the minimal listing shape accepted by the detail
// enrichment endpoint. It is a subset of Product.
type ProductSummary struct {
	Title      string `json:"title"`
	Price      int    `json:"price"`
	PriceText  string `json:"priceText"`
	Source     Source `json:"source"`
	ImageURL   string `json:"imageUrl"`
	ProductURL string `json:"productUrl" binding:"required"`
}

// ProductDetail is the rich single-item record produced by the detail
// extractor. Exactly one detail is returned per input summary; when
// extraction fails the record is synthesized from the summary instead.
type ProductDetail struct {
	Title       string            `json:"title"`
	Price       int               `json:"price"`
	PriceText   string            `json:"priceText"`
	Source      Source            `json:"source"`
	ImageURL    string            `json:"imageUrl"`
	ProductURL  string            `json:"productUrl"`
	Description string            `json:"description"`
	Condition   string            `json:"condition"`
	SellerName  string            `json:"sellerName"`
	Location    string            `json:"location,omitempty"`
	Specs       map[string]string `json:"specs,omitempty"`
	Synthesized bool              `json:"synthesized"`
	ScrapedAt   time.Time         `json:"scrapedAt"`
}

// NewProductID generates an opaque per-extraction listing ID. IDs are not
// stable across scrapes of the same real-world listing.
func NewProductID(source Source) string {
	return string(source) + "-" + uuid.NewString()
}

// ParsePrice extracts a numeric won amount from a price string by stripping
// every non-digit rune. Unparseable input ("가격 문의", empty, pure text)
// yields 0, which callers must treat as "unknown", not as an error.
func ParsePrice(text string) int {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 || digits.Len() > 12 {
		return 0
	}
	n := 0
	for _, r := range digits.String() {
		n = n*10 + int(r-'0')
	}
	return n
}

// TruncateTitle trims and bounds a title to MaxTitleLen runes.
func TruncateTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if utf8.RuneCountInString(title) <= MaxTitleLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:MaxTitleLen])
}
