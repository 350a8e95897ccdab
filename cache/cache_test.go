package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/huntable/jangter/models"
)

type keyParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func sampleProducts(n int) []models.Product {
	out := make([]models.Product, n)
	for i := range out {
		out[i] = models.Product{
			ID:         models.NewProductID(models.SourceBunjang),
			Title:      "아이폰 15 프로",
			Price:      920000,
			PriceText:  "920,000원",
			Source:     models.SourceBunjang,
			ProductURL: "https://m.bunjang.co.kr/products/1",
		}
	}
	return out
}

func TestKey_Deterministic(t *testing.T) {
	k1 := Key(models.SourceBunjang, "search", keyParams{Query: "iphone", Limit: 20})
	k2 := Key(models.SourceBunjang, "search", keyParams{Query: "iphone", Limit: 20})

	if k1 != k2 {
		t.Errorf("identical inputs produced different keys: %q vs %q", k1, k2)
	}
	if !strings.HasPrefix(k1, "bunjang:") {
		t.Errorf("key should be namespaced by source, got %q", k1)
	}
}

func TestKey_DiffersAcrossSourcesAndParams(t *testing.T) {
	base := Key(models.SourceBunjang, "search", keyParams{Query: "iphone", Limit: 20})

	if k := Key(models.SourceDanggeun, "search", keyParams{Query: "iphone", Limit: 20}); k == base {
		t.Error("same query on different sources must not share a key")
	}
	if k := Key(models.SourceBunjang, "search", keyParams{Query: "iphone", Limit: 50}); k == base {
		t.Error("different limits must not share a key")
	}
	if k := Key(models.SourceBunjang, "detail", keyParams{Query: "iphone", Limit: 20}); k == base {
		t.Error("different operations must not share a key")
	}
}

func TestStore_GetSet(t *testing.T) {
	s := New(16, time.Minute)
	key := Key(models.SourceBunjang, "search", keyParams{Query: "iphone", Limit: 20})

	if _, hit := s.Get(key); hit {
		t.Fatal("empty store should miss")
	}

	want := sampleProducts(3)
	s.Set(key, want)

	got, hit := s.Get(key)
	if !hit {
		t.Fatal("expected hit after Set")
	}
	if len(got) != len(want) {
		t.Errorf("got %d products, want %d", len(got), len(want))
	}
}

func TestStore_RefusesEmptyList(t *testing.T) {
	s := New(16, time.Minute)
	key := Key(models.SourceBunjang, "search", keyParams{Query: "없는물건", Limit: 20})

	s.Set(key, nil)
	if _, hit := s.Get(key); hit {
		t.Error("nil list must not be cached")
	}

	s.Set(key, []models.Product{})
	if _, hit := s.Get(key); hit {
		t.Error("empty list must not be cached")
	}
}

func TestStore_Expiry(t *testing.T) {
	s := New(16, 50*time.Millisecond)
	key := Key(models.SourceBunjang, "search", keyParams{Query: "iphone", Limit: 20})

	s.Set(key, sampleProducts(1))
	if _, hit := s.Get(key); !hit {
		t.Fatal("fresh entry should hit")
	}

	time.Sleep(120 * time.Millisecond)
	if _, hit := s.Get(key); hit {
		t.Error("expired entry must read as absent")
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := New(16, time.Minute)
	k1 := Key(models.SourceBunjang, "search", keyParams{Query: "a", Limit: 20})
	k2 := Key(models.SourceDanggeun, "search", keyParams{Query: "b", Limit: 20})

	s.Set(k1, sampleProducts(1))
	s.Set(k2, sampleProducts(2))

	if !s.Delete(k1) {
		t.Error("Delete should report the entry was present")
	}
	if s.Delete(k1) {
		t.Error("second Delete should report absence")
	}

	if n := s.Clear(); n != 1 {
		t.Errorf("Clear() = %d, want 1", n)
	}
	if _, hit := s.Get(k2); hit {
		t.Error("Clear should evict everything")
	}
}

func TestStore_OverwriteReplacesWholesale(t *testing.T) {
	s := New(16, time.Minute)
	key := Key(models.SourceBunjang, "search", keyParams{Query: "iphone", Limit: 20})

	s.Set(key, sampleProducts(5))
	s.Set(key, sampleProducts(2))

	got, hit := s.Get(key)
	if !hit {
		t.Fatal("expected hit")
	}
	if len(got) != 2 {
		t.Errorf("overwrite should replace the list wholesale, got %d products", len(got))
	}
}
