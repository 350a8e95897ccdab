package models

// SearchRequest is the payload for POST /api/v1/search.
type SearchRequest struct {
	// Query is the free-text search term. Required.
	Query string `json:"query" binding:"required"`

	// Sources selects which marketplaces to search. Unknown names are
	// ignored; empty means all of them.
	Sources []string `json:"sources,omitempty"`

	// Limit caps the merged result count. Default: 20. Max: 100.
	Limit int `json:"limit,omitempty" binding:"omitempty,min=1,max=100"`

	// ForceRefresh bypasses the per-source result cache.
	ForceRefresh bool `json:"forceRefresh,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults() {
	if r.Limit == 0 {
		r.Limit = 20
	}
}

// DetailRequest is the payload for POST /api/v1/products/details.
// One detail record is returned per summary, in input order.
type DetailRequest struct {
	Products []ProductSummary `json:"products" binding:"required,min=1,max=20,dive"`
}
