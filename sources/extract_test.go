package sources

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/huntable/jangter/models"
)

func bunjangSearchPage(cards int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="root">`)
	for i := 1; i <= cards; i++ {
		fmt.Fprintf(&b, `
			<a data-pid="%d" href="/products/%d">
				<img alt="아이폰 15 프로 %d" data-original="//media.bunjang.co.kr/product/%d_1.jpg"/>
				<div class="sc-name-xyz">아이폰 15 프로 %d</div>
				<div class="sc-price-xyz">%d,000원</div>
				<span>3분 전</span>
			</a>`, i, i, i, i, i, 900+i)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func TestBunjangExtractSearch(t *testing.T) {
	products := NewBunjang().ExtractSearch(bunjangSearchPage(3), 20)

	if len(products) != 3 {
		t.Fatalf("got %d products, want 3", len(products))
	}

	first := products[0]
	if first.Title != "아이폰 15 프로 1" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Price != 901000 {
		t.Errorf("price = %d, want 901000", first.Price)
	}
	if first.PriceText != "901,000원" {
		t.Errorf("priceText = %q", first.PriceText)
	}
	if first.ProductURL != "https://m.bunjang.co.kr/products/1" {
		t.Errorf("productUrl = %q", first.ProductURL)
	}
	if first.ImageURL != "https://media.bunjang.co.kr/product/1_1.jpg" {
		t.Errorf("imageUrl = %q", first.ImageURL)
	}
	if first.Source != models.SourceBunjang {
		t.Errorf("source = %q", first.Source)
	}
	if first.Timestamp != "3분 전" {
		t.Errorf("timestamp = %q", first.Timestamp)
	}

	// Document order must survive extraction.
	for i, p := range products {
		want := fmt.Sprintf("https://m.bunjang.co.kr/products/%d", i+1)
		if p.ProductURL != want {
			t.Errorf("products[%d].ProductURL = %q, want %q (document order)", i, p.ProductURL, want)
		}
	}
}

func TestBunjangExtractSearch_HonorsLimit(t *testing.T) {
	products := NewBunjang().ExtractSearch(bunjangSearchPage(10), 4)
	if len(products) != 4 {
		t.Errorf("got %d products, want the limit of 4", len(products))
	}
}

func TestBunjangExtractSearch_DropsIncompleteCards(t *testing.T) {
	page := `<html><body>
		<a data-pid="1" href="/products/1">
			<div class="sc-name">멀쩡한 상품</div><div>15,000원</div>
		</a>
		<a data-pid="2" href="javascript:void(0)">
			<div class="sc-name">링크 없는 상품</div><div>20,000원</div>
		</a>
		<a data-pid="3" href="/products/3"><div>25,000원</div></a>
	</body></html>`

	products := NewBunjang().ExtractSearch(page, 20)
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1 (cards missing URL or title are dropped)", len(products))
	}
	if products[0].Title != "멀쩡한 상품" {
		t.Errorf("title = %q", products[0].Title)
	}
}

func TestBunjangExtractSearch_RawFallback(t *testing.T) {
	// No data-pid attributes anywhere; the structural regex is the only path.
	page := `<html><body><div>
		<a class="x9f2k" href="/products/777?ref=search">
			<img alt="갤럭시 S24 울트라" src="https://media.bunjang.co.kr/product/777.jpg">
			<em>1,250,000원</em>
		</a>
	</div></body></html>`

	products := NewBunjang().ExtractSearch(page, 20)
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1 from raw fallback", len(products))
	}
	p := products[0]
	if p.Title != "갤럭시 S24 울트라" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Price != 1250000 {
		t.Errorf("price = %d, want 1250000", p.Price)
	}
	if p.ProductURL != "https://m.bunjang.co.kr/products/777?ref=search" {
		t.Errorf("productUrl = %q", p.ProductURL)
	}
}

func TestBunjangExtractSearch_PriceInquiry(t *testing.T) {
	page := `<html><body>
		<a data-pid="1" href="/products/1">
			<div class="sc-name">희귀 수집품</div>
		</a>
	</body></html>`

	products := NewBunjang().ExtractSearch(page, 20)
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	if products[0].Price != 0 {
		t.Errorf("price = %d, want 0 for unknown", products[0].Price)
	}
	if products[0].PriceText != models.PriceUnknownText {
		t.Errorf("priceText = %q, want %q", products[0].PriceText, models.PriceUnknownText)
	}
}

func TestJoonggonaraExtractSearch(t *testing.T) {
	page := `<html><body><main>
		<a href="/product/111" class="group">
			<img alt="맥북 프로 M3" data-src="//img2.joongna.com/media/111.jpg"/>
			<h2 class="line-clamp-2">맥북 프로 M3</h2>
			<div class="font-semibold">2,100,000원</div>
			<div class="text-gray-400"><span>서울 마포구</span><span>1시간 전</span></div>
		</a>
		<a href="/product/222" class="group">
			<h2 class="line-clamp-2">맥북 에어 M2</h2>
			<div class="font-semibold">950,000원</div>
		</a>
		<a href="/login">로그인</a>
	</main></body></html>`

	products := NewJoonggonara().ExtractSearch(page, 20)
	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}

	first := products[0]
	if first.Title != "맥북 프로 M3" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Price != 2100000 {
		t.Errorf("price = %d", first.Price)
	}
	if first.ProductURL != "https://web.joongna.com/product/111" {
		t.Errorf("productUrl = %q", first.ProductURL)
	}
	if first.ImageURL != "https://img2.joongna.com/media/111.jpg" {
		t.Errorf("imageUrl = %q", first.ImageURL)
	}
	if first.Location != "서울 마포구" {
		t.Errorf("location = %q", first.Location)
	}
	if first.Source != models.SourceJoonggonara {
		t.Errorf("source = %q", first.Source)
	}
}

func TestDanggeunExtractSearch(t *testing.T) {
	page := `<html><body>
		<a data-gtm="search_article" href="/kr/buy-sell/자전거-abc123">
			<img alt="" src="https://dnvefa72aowie.cloudfront.net/market/abc.jpg"/>
			<span class="lc-2">로드 자전거 팝니다</span>
			<span class="price-abc">180,000원</span>
			<span class="region-abc">역삼동</span>
			<time>2일 전</time>
		</a>
	</body></html>`

	products := NewDanggeun().ExtractSearch(page, 20)
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}

	p := products[0]
	if p.Title != "로드 자전거 팝니다" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Price != 180000 {
		t.Errorf("price = %d", p.Price)
	}
	if p.Location != "역삼동" {
		t.Errorf("location = %q", p.Location)
	}
	if p.Timestamp != "2일 전" {
		t.Errorf("timestamp = %q", p.Timestamp)
	}
	if p.Source != models.SourceDanggeun {
		t.Errorf("source = %q", p.Source)
	}
}

func TestDanggeunExtractSearch_FallbackCards(t *testing.T) {
	// Server-rendered variant without GTM tags.
	page := `<html><body>
		<a href="/kr/buy-sell/의자-xyz789">
			<div class="card-title">허먼밀러 의자</div>
			<div class="card-price">450,000원</div>
		</a>
	</body></html>`

	products := NewDanggeun().ExtractSearch(page, 20)
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1 via fallback selector", len(products))
	}
	if products[0].Title != "허먼밀러 의자" {
		t.Errorf("title = %q", products[0].Title)
	}
}

func TestSearchURLs(t *testing.T) {
	profile := testProfile()

	if got := NewBunjang().SearchURL("아이폰 15", profile); got != "https://m.bunjang.co.kr/search/products?order=score&q=%EC%95%84%EC%9D%B4%ED%8F%B0+15" {
		t.Errorf("bunjang url = %q", got)
	}
	if got := NewJoonggonara().SearchURL("맥북", profile); got != "https://web.joongna.com/search/%EB%A7%A5%EB%B6%81" {
		t.Errorf("joonggonara url = %q", got)
	}
	got := NewDanggeun().SearchURL("자전거", profile)
	if !strings.Contains(got, "in="+url.QueryEscape(profile.Region)) {
		t.Errorf("danggeun url should carry the region, got %q", got)
	}
	if !strings.Contains(got, "search=%EC%9E%90%EC%A0%84%EA%B1%B0") {
		t.Errorf("danggeun url should carry the query, got %q", got)
	}
}
