package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huntable/jangter/aggregator"
	"github.com/huntable/jangter/models"
)

// Search returns a handler for POST /api/v1/search.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Aggregator.Search → merged, deduped, price-sorted products.
//  3. Fill execution time, return 200.
//
// Per-source failures never surface here: a source that times out or gets
// blocked simply contributes nothing to the merged list.
func Search(agg *aggregator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SearchResponse{
				Success:  false,
				Products: []models.Product{},
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		srcs := models.ParseSources(req.Sources)

		products, err := agg.Search(c.Request.Context(), req.Query, srcs, req.Limit, req.ForceRefresh)
		if err != nil {
			respondSearchError(c, err, time.Since(start))
			return
		}

		c.JSON(http.StatusOK, models.SearchResponse{
			Success:         true,
			Products:        products,
			Count:           len(products),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		})
	}
}

// respondSearchError maps a ScrapeError to the correct HTTP status code and
// writes a structured JSON error response.
func respondSearchError(c *gin.Context, err error, elapsed time.Duration) {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.SearchResponse{
		Success:         false,
		Products:        []models.Product{},
		ExecutionTimeMs: elapsed.Milliseconds(),
		Error:           scrapeErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeFetchBlocked:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
