package models

// SearchResponse is the response for POST /api/v1/search.
type SearchResponse struct {
	// Success indicates whether the search request itself was valid.
	// Zero results from every source is still Success=true.
	Success bool `json:"success"`

	// Products is the merged, deduplicated, price-sorted result list.
	Products []Product `json:"products"`

	// Count is len(Products).
	Count int `json:"count"`

	// ExecutionTimeMs is the end-to-end duration in milliseconds.
	ExecutionTimeMs int64 `json:"executionTimeMs"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// DetailResponse is the response for POST /api/v1/products/details.
type DetailResponse struct {
	Success bool            `json:"success"`
	Details []ProductDetail `json:"details"`
	Count   int             `json:"count"`

	// ExecutionTimeMs is the end-to-end duration in milliseconds.
	ExecutionTimeMs int64 `json:"executionTimeMs"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorResponse is the envelope for requests rejected before any
// orchestration runs (auth, rate limit, malformed payloads).
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string       `json:"status"` // "healthy" or "degraded"
	Uptime  string       `json:"uptime"`
	Browser BrowserStats `json:"browser"`
	Sources []Source     `json:"sources"`
	Version string       `json:"version"`
}

// BrowserStats reports the state of the shared browser session.
type BrowserStats struct {
	// State is one of "uninitialized", "launching", "ready", "closed".
	State string `json:"state"`

	// ActivePages is the number of tabs currently open for in-flight scrapes.
	ActivePages int `json:"activePages"`

	// Launches counts browser process launches since startup. Anything above
	// 1 means the session had to be relaunched after a crash.
	Launches int `json:"launches"`
}

// CacheClearResponse is the response for DELETE /api/v1/cache.
type CacheClearResponse struct {
	Success bool `json:"success"`

	// Evicted is the number of cache entries removed.
	Evicted int `json:"evicted"`
}
