package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huntable/jangter/models"
	"github.com/huntable/jangter/sources"
)

// Details returns a handler for POST /api/v1/products/details.
//
// The response carries exactly one detail record per requested summary, in
// input order. Failed enrichments come back synthesized rather than missing,
// so clients can zip request and response by index.
func Details(scraper *sources.DetailScraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.DetailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.DetailResponse{
				Success: false,
				Details: []models.ProductDetail{},
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		for i := range req.Products {
			if !req.Products[i].Source.Valid() {
				c.JSON(http.StatusBadRequest, models.DetailResponse{
					Success: false,
					Details: []models.ProductDetail{},
					Error: &models.ErrorDetail{
						Code:    models.ErrCodeInvalidInput,
						Message: "unknown source: " + string(req.Products[i].Source),
					},
				})
				return
			}
		}

		details := scraper.ScrapeDetails(c.Request.Context(), req.Products)

		c.JSON(http.StatusOK, models.DetailResponse{
			Success:         true,
			Details:         details,
			Count:           len(details),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		})
	}
}
