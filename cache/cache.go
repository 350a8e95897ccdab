package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/huntable/jangter/models"
)

// Store is the per-source search result cache. Keys carry the source
// namespace, so different sources' entries never collide even for the same
// query. Entries expire after the configured TTL; stale entries read as
// absent, never as data.
//
// Store is safe for concurrent use. Same-key write races under forced
// refresh are last-writer-wins, which is fine for marketplace data.
type Store struct {
	lru *expirable.LRU[string, []models.Product]
	ttl time.Duration
}

// New creates a Store holding at most maxEntries result lists, each live
// for ttl. Expired entries are evicted lazily by the LRU itself.
func New(maxEntries int, ttl time.Duration) *Store {
	return &Store{
		lru: expirable.NewLRU[string, []models.Product](maxEntries, nil, ttl),
		ttl: ttl,
	}
}

// Key derives a deterministic cache key from the source namespace, the
// operation name, and the operation parameters. Identical queries map to
// identical keys regardless of call site.
//
// Params are fingerprinted via their JSON encoding; anything that fails to
// marshal falls back to its fmt representation so key generation itself can
// never fail a scrape.
func Key(source models.Source, op string, params any) string {
	encoded, err := json.Marshal(params)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%+v", params))
	}

	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte("|"))
	h.Write([]byte(op))
	h.Write([]byte("|"))
	h.Write(encoded)
	return string(source) + ":" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached product list for key, or (nil, false) when the
// entry is absent or expired.
func (s *Store) Get(key string) ([]models.Product, bool) {
	products, ok := s.lru.Get(key)
	if !ok {
		return nil, false
	}
	return products, true
}

// Set stores a non-empty product list under key, overwriting any previous
// entry wholesale. Empty lists are ignored: a failed scrape must not poison
// the cache and block a retry within the TTL window.
func (s *Store) Set(key string, products []models.Product) {
	if len(products) == 0 {
		slog.Debug("cache: refusing to store empty result", "key", key)
		return
	}
	s.lru.Add(key, products)
}

// Delete removes the entry for key, reporting whether it was present.
func (s *Store) Delete(key string) bool {
	return s.lru.Remove(key)
}

// Clear evicts every entry and returns the number removed.
func (s *Store) Clear() int {
	n := s.lru.Len()
	s.lru.Purge()
	return n
}

// TTL returns the store's freshness window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}
